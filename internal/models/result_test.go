package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyExitCode(t *testing.T) {
	assert.Equal(t, ClassSuccess, ClassifyExitCode(0))
	assert.Equal(t, ClassWarning, ClassifyExitCode(23))
	assert.Equal(t, ClassWarning, ClassifyExitCode(24))
	assert.Equal(t, ClassFailure, ClassifyExitCode(1))
	assert.Equal(t, ClassFailure, ClassifyExitCode(12))
	assert.Equal(t, ClassFailure, ClassifyExitCode(255))
}

func TestBackupReport_Overall_MixedResults(t *testing.T) {
	report := &BackupReport{}
	report.Append(RunResult{Target: "www", ExitCode: 0, Class: ClassSuccess})
	report.Append(RunResult{Target: "home", ExitCode: 12, Class: ClassFailure})

	assert.Equal(t, ClassFailure, report.Overall())
	assert.Equal(t, ExitFailure, report.ExitCode())
	assert.Equal(t, []string{"www"}, report.Succeeded())
	assert.Equal(t, []string{"home"}, report.Failed())
}

func TestBackupReport_Overall_WarningDoesNotMaskFailure(t *testing.T) {
	report := &BackupReport{}
	report.Append(RunResult{Target: "a", ExitCode: 24, Class: ClassWarning})
	report.Append(RunResult{Target: "b", ExitCode: 1, Class: ClassFailure})

	assert.Equal(t, ClassFailure, report.Overall())
}

func TestBackupReport_Overall_WarningOnly(t *testing.T) {
	report := &BackupReport{}
	report.Append(RunResult{Target: "a", ExitCode: 0, Class: ClassSuccess})
	report.Append(RunResult{Target: "b", ExitCode: 23, Class: ClassWarning})

	assert.Equal(t, ClassWarning, report.Overall())
	assert.Equal(t, ExitWarning, report.ExitCode())
}

func TestBackupReport_StatsAggregation(t *testing.T) {
	report := &BackupReport{}
	report.Append(RunResult{
		Target: "a",
		Class:  ClassSuccess,
		Stats:  TransferStats{Known: true, BytesTransferred: 100, FilesCreated: 2},
	})
	report.Append(RunResult{
		Target: "b",
		Class:  ClassSuccess,
		Stats:  TransferStats{Known: true, BytesTransferred: 50, FilesDeleted: 1},
	})

	assert.True(t, report.Stats.Known)
	assert.False(t, report.StatsIncomplete)
	assert.Equal(t, int64(150), report.Stats.BytesTransferred)
	assert.Equal(t, int64(2), report.Stats.FilesCreated)
	assert.Equal(t, int64(1), report.Stats.FilesDeleted)
}

func TestBackupReport_UnknownStatsMarkIncomplete(t *testing.T) {
	report := &BackupReport{}
	report.Append(RunResult{Target: "a", Class: ClassSuccess, Stats: TransferStats{Known: false}})

	assert.True(t, report.StatsIncomplete)
	assert.False(t, report.Stats.Known)
}
