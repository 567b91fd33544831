package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediawiper/internal/apperr"
	"mediawiper/internal/config"
	"mediawiper/internal/logging"
	"mediawiper/internal/media"
	"mediawiper/internal/wipe"
)

func newFlagsCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addWipeFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestExtensionsFromFlags(t *testing.T) {
	cfg = config.Default()

	exts, err := extensionsFromFlags(newFlagsCmd(t))
	require.NoError(t, err)
	assert.Equal(t, media.DefaultSet().Sorted(), exts.Sorted())

	exts, err = extensionsFromFlags(newFlagsCmd(t, "-e", "LOG,.tmp"))
	require.NoError(t, err)
	assert.Equal(t, []string{".log", ".tmp"}, exts.Sorted())

	exts, err = extensionsFromFlags(newFlagsCmd(t, "-e", "log", "--include-images"))
	require.NoError(t, err)
	assert.True(t, media.Matches("a.log", exts))
	assert.True(t, media.Matches("a.PNG", exts))
	assert.False(t, media.Matches("a.mp4", exts))

	_, err = extensionsFromFlags(newFlagsCmd(t, "-e", "a/b"))
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestBuildRequestUsesConfigMethod(t *testing.T) {
	cfg = config.Default()
	cfg.Wipe.DefaultMethod = "dod"

	req, err := buildRequest(newFlagsCmd(t), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, wipe.MethodDOD, req.Method)

	req, err = buildRequest(newFlagsCmd(t, "--secure-method", "random_35pass"), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, wipe.MethodRandom35Pass, req.Method)

	_, err = buildRequest(newFlagsCmd(t, "-m", "gutmann"), t.TempDir())
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, EXIT_SUCCESS, exitCode(nil))
	assert.Equal(t, EXIT_WARNING, exitCode(&exitCodeError{code: EXIT_WARNING, msg: "x"}))
	assert.Equal(t, EXIT_WARNING, exitCode(fmt.Errorf("wrapped: %w", &exitCodeError{code: EXIT_WARNING})))
	assert.Equal(t, EXIT_ERROR, exitCode(apperr.New(apperr.DirectoryAccess, "stat", "/x", nil)))
	assert.Equal(t, EXIT_ERROR, exitCode(apperr.Configf("bad")))

	assert.Equal(t, EXIT_ERROR, resultExitCode(nil, errors.New("boom")))
	assert.Equal(t, EXIT_WARNING, resultExitCode(&wipe.Result{FilesFailed: 1}, nil))
	assert.Equal(t, EXIT_SUCCESS, resultExitCode(&wipe.Result{FilesDeleted: 3}, nil))
}

func TestParseAnchor(t *testing.T) {
	at, err := parseAnchor("2026-10-15 03:00")
	require.NoError(t, err)
	assert.Equal(t, 3, at.Hour())

	_, err = parseAnchor("tomorrow")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestScheduledRunnerReportCarriesEntryID(t *testing.T) {
	reports := t.TempDir()
	cfg = config.Default()
	cfg.Security.ProtectedPaths = nil
	cfg.Reporting.Enabled = true
	cfg.Reporting.LocalPath = reports
	logger = logging.NewNop()

	req, err := wipe.NewRequest(t.TempDir(), wipe.MethodNone, nil, false, true)
	require.NoError(t, err)

	runner := &scheduledRunner{orchestrator: wipe.NewOrchestrator(overwriterConfig(cfg), logger)}
	_, err = runner.Run(context.Background(), "entry-1", req)
	require.NoError(t, err)

	files, err := filepath.Glob(filepath.Join(reports, "mediawiper_report_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var saved struct {
		Source  string `json:"source"`
		EntryID string `json:"entry_id"`
	}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "scheduler", saved.Source)
	assert.Equal(t, "entry-1", saved.EntryID)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "mediawiper.yaml")
	require.NoError(t, writeDefaultConfig(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), loaded)

	err = writeDefaultConfig(path)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	assert.True(t, errors.Is(writeDefaultConfig(""), apperr.ErrConfiguration))
}

func TestFlagHelpListsChoices(t *testing.T) {
	help := rootCmd.Flags().Lookup("secure-method").Usage
	assert.Contains(t, help, "none/random/dod/random_35pass")
	assert.Contains(t, rootCmd.PersistentFlags().Lookup("profile").Usage, "safe/balanced/fast")
	assert.Contains(t, scheduleAddCmd.Flags().Lookup("interval").Usage, "once/hourly/daily/weekly/monthly")
}
