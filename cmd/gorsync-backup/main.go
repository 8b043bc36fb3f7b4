// Package main is the entry point for gorsync-backup.
package main

import (
	"errors"
	"os"

	"gorsync-backup/internal/models"
)

func main() {
	if err := Execute(); err != nil {
		var coded *models.CodedError
		if errors.As(err, &coded) {
			os.Exit(coded.Code)
		}
		os.Exit(models.ExitFailure)
	}
}
