package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
)

// newFlags returns a fresh command carrying a few typed flags.
func newFlags() (*cobra.Command, *int, *string, *[]int) {
	c := &cobra.Command{Use: "test"}
	var iters int
	var level string
	var dims []int
	c.Flags().IntVar(&iters, "max-iters", 0, "")
	c.Flags().StringVar(&level, "log-level", "info", "")
	c.Flags().IntSliceVar(&dims, "size", []int{8, 8}, "")
	return c, &iters, &level, &dims
}

func writeRC(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestApplyRCDefaults_FillsUnsetFlags(t *testing.T) {
	// GIVEN a system rc file and a user rc file
	dir := t.TempDir()
	system := writeRC(t, dir, "system", "MAX_ITERS=10\nLOG_LEVEL=warn\nsize=\"16,32\"\n")
	user := writeRC(t, dir, "user", "max_iters=20\n")
	c, iters, level, dims := newFlags()

	// WHEN defaults are applied (missing files are skipped)
	require.NoError(t, applyRCDefaults(c.Flags(), []string{system, filepath.Join(dir, "missing"), user}))

	// THEN later files win and every key reached its flag
	assert.Equal(t, 20, *iters)
	assert.Equal(t, "warn", *level)
	assert.Equal(t, []int{16, 32}, *dims)
}

func TestApplyRCDefaults_ExplicitFlagsWin(t *testing.T) {
	dir := t.TempDir()
	rc := writeRC(t, dir, "rc", "MAX_ITERS=10\nLOG_LEVEL=warn\n")
	c, iters, level, _ := newFlags()
	require.NoError(t, c.Flags().Parse([]string{"--max-iters=3"}))

	require.NoError(t, applyRCDefaults(c.Flags(), []string{rc}))
	assert.Equal(t, 3, *iters, "command line beats rc file")
	assert.Equal(t, "warn", *level)
}

func TestApplyRCDefaults_BadValue(t *testing.T) {
	rc := writeRC(t, t.TempDir(), "rc", "MAX_ITERS=lots\nUNKNOWN_OPTION=1\n")
	c, _, _, _ := newFlags()
	assert.Error(t, applyRCDefaults(c.Flags(), []string{rc}))
}

func TestApplyRCDefaults_NoFiles(t *testing.T) {
	c, iters, _, _ := newFlags()
	require.NoError(t, applyRCDefaults(c.Flags(), []string{filepath.Join(t.TempDir(), "none")}))
	assert.Equal(t, 0, *iters)
}

func TestRCFiles_Order(t *testing.T) {
	files := rcFiles()
	assert.Equal(t, "/etc/halosimrc", files[0])
	assert.Equal(t, ".halosimrc", files[len(files)-1])
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name           string
		level          string
		quiet, verbose bool
		want           logrus.Level
	}{
		{"level flag", "error", false, false, logrus.ErrorLevel},
		{"verbose overrides", "error", false, true, logrus.DebugLevel},
		{"quiet overrides", "info", true, false, logrus.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := logrus.New()
			closeLog, err := setupLogging(l, tt.level, "", tt.quiet, tt.verbose)
			require.NoError(t, err)
			defer closeLog()
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}

	_, err := setupLogging(logrus.New(), "chatty", "", false, false)
	assert.Error(t, err)
}

func TestSetupLogging_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := logrus.New()
	closeLog, err := setupLogging(l, "info", path, false, false)
	require.NoError(t, err)
	l.Info("Block connection established")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Block connection established")
}

func TestRunCmd_DefaultsMatchConfig(t *testing.T) {
	d := sim.DefaultConfig()
	for name, want := range map[string]string{
		"mode":            string(d.Mode),
		"every":           "100",
		"max-iters":       "0",
		"rendezvous-port": "1371",
		"precision":       "single",
		"transport":       "chan",
		"backends":        "[cuda,opencl,host]",
		"model":           "d2q9",
	} {
		f := runCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, want, f.DefValue, name)
	}
	assert.NotNil(t, runCmd.Flags().ShorthandLookup("q"))
	assert.NotNil(t, runCmd.Flags().ShorthandLookup("v"))
}

func TestRunCmd_BenchmarkEndToEnd(t *testing.T) {
	// GIVEN a small benchmark run on a free rendezvous port, run from a
	// directory without rc files
	t.Chdir(t.TempDir())
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)
	rootCmd.SetArgs([]string{"run",
		"--mode=benchmark", "--max-iters=3", "--size=16,16", "--blocks=2,2",
		"--rendezvous-port=0", "--backends=host", "--quiet", "--periodic=true,true",
		"--benchmark-db=bench",
	})

	// WHEN the command executes
	err := rootCmd.Execute()

	// THEN it succeeds and writes the benchmark database
	require.NoError(t, err)
	_, err = os.Stat("bench.sqlite3")
	assert.NoError(t, err)
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	logrus.SetOutput(io.Discard)
	defer logrus.SetOutput(os.Stderr)
	rootCmd.SetArgs([]string{"run", "--mode=benchmark", "--max-iters=0", "--rendezvous-port=0"})

	assert.Error(t, rootCmd.Execute())
}
