package reporting

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediawiper/internal/apperr"
	"mediawiper/internal/config"
	"mediawiper/internal/media"
	"mediawiper/internal/wipe"
)

func sampleResult() *wipe.Result {
	return &wipe.Result{
		FilesScanned:          4,
		FilesMatched:          2,
		FilesDeleted:          1,
		FilesFailed:           1,
		TotalBytesOverwritten: 300,
		Outcomes: []wipe.FileOutcome{
			{Path: "/d/a.mp4", Deleted: true, PassesCompleted: 3, BytesOverwritten: 300},
			{Path: "/d/b.mp4", PassesCompleted: 1, BytesOverwritten: 100,
				Err: apperr.New(apperr.IO, "pass 2/3", "/d/b.mp4", errors.New("disk full")), ErrorKind: apperr.IO},
		},
	}
}

func TestGenerateReport(t *testing.T) {
	exts, err := media.NewSet("mp4")
	require.NoError(t, err)
	req := wipe.Request{TargetDir: "/d", Method: wipe.MethodDOD, Extensions: exts}
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	report := GenerateReport(sampleResult(), nil, req, config.Default(), "cli", start, start.Add(2*time.Second), 2)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "2s", report.Duration)
	assert.Equal(t, 2, report.ExitCode)
	require.Len(t, report.Files, 2)
	assert.Equal(t, "deleted", report.Files[0].Status)
	assert.Equal(t, "failed", report.Files[1].Status)
	assert.Equal(t, "IOFailure", report.Files[1].ErrorKind)
	assert.Equal(t, 1, report.Summary.FilesFailed)
	assert.InDelta(t, 50.0, report.Summary.SuccessRate, 0.001)
}

func TestGenerateReportJobFailure(t *testing.T) {
	req := wipe.Request{TargetDir: "/missing", Method: wipe.MethodNone}
	err := apperr.New(apperr.DirectoryAccess, "stat", "/missing", os.ErrNotExist)

	report := GenerateReport(nil, err, req, nil, "scheduler", time.Now(), time.Now(), 1)
	assert.Contains(t, report.Error, "DirectoryAccessFailure")
	assert.Empty(t, report.Files)
	assert.Nil(t, report.Config)
}

func TestSaveReport(t *testing.T) {
	cfg := config.Default()
	cfg.Reporting.LocalPath = t.TempDir()

	report := GenerateReport(sampleResult(), nil, wipe.Request{TargetDir: "/d", Method: wipe.MethodDOD}, cfg, "cli", time.Now(), time.Now(), 2)

	path, err := SaveReport(report, cfg)
	require.NoError(t, err)
	assert.Empty(t, path, "отчёты выключены по умолчанию")

	cfg.Reporting.Enabled = true
	path, err = SaveReport(report, cfg)
	require.NoError(t, err)
	require.FileExists(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded["run_id"])
	assert.Equal(t, "dod", decoded["request"].(map[string]interface{})["secure_method"])
}
