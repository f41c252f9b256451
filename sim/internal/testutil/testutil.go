// Package testutil provides shared test infrastructure for the sim
// packages.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// QuietLogger returns a logger that discards everything. Set DEBUG_TESTS=1
// to see debug output instead.
func QuietLogger() logrus.FieldLogger {
	l := logrus.New()
	if os.Getenv("DEBUG_TESTS") != "" {
		l.SetLevel(logrus.DebugLevel)
		return l
	}
	l.SetOutput(io.Discard)
	return l
}

// WriteTemp writes body to a file called name in a fresh temp directory and
// returns its path.
func WriteTemp(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
