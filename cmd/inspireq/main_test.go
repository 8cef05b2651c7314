package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/inspireq/internal/cache"
	"github.com/pdiddy/inspireq/internal/report"
)

func TestRootRunsVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "inspireq "+version+"\n", out.String())
}

func TestRootDebugFlag(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"--debug", "version"})
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Set("debug", "false")
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func reportCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addReportFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestReportOptions(t *testing.T) {
	opts, err := reportOptions(reportCommand(t,
		"--fiscal-year", "2023", "--before-date", "2023-06-01",
		"--preprints", "--prepend", "ALICE Collaboration,", "--show-date"))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2022, time.October, 1, 0, 0, 0, 0, time.UTC), opts.Window.From)
	assert.Equal(t, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), opts.Window.To)
	assert.Equal(t, report.PolicyPreprints, opts.Policy)
	assert.Equal(t, "ALICE Collaboration,", opts.Prepend)
	assert.True(t, opts.ShowDate)
}

func TestReportOptionsDefaults(t *testing.T) {
	opts, err := reportOptions(reportCommand(t))
	require.NoError(t, err)
	assert.True(t, opts.Window.From.IsZero())
	assert.True(t, opts.Window.To.IsZero())
	assert.Equal(t, report.PolicyPublished, opts.Policy)

	opts, err = reportOptions(reportCommand(t, "--pmp-year", "2024", "--preprints-only"))
	require.NoError(t, err)
	assert.Equal(t, report.PMPYear(2024), opts.Window)
	assert.Equal(t, report.PolicyPreprintsOnly, opts.Policy)
}

func TestReportOptionsBadDate(t *testing.T) {
	_, err := reportOptions(reportCommand(t, "--after-date", "2023-13-01"))
	assert.ErrorContains(t, err, "after date")
}

func TestCacheDirs(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"2301.00001", filepath.Join("hep-th", "9901001")} {
		c, err := cache.Open(filepath.Join(root, dir))
		require.NoError(t, err)
		require.NoError(t, c.Store("https://example.org/"+dir, []byte("x")))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	dirs, err := cacheDirs(root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "2301.00001"),
		filepath.Join(root, "hep-th", "9901001"),
	}, dirs)

	_, err = cacheDirs(filepath.Join(root, "missing"))
	assert.ErrorContains(t, err, "does not exist")
}
