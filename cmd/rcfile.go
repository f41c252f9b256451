package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// rcFiles lists the configuration files consulted for flag defaults, from
// lowest to highest priority.
func rcFiles() []string {
	files := []string{"/etc/halosimrc"}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files, filepath.Join(home, ".halosimrc"))
	}
	return append(files, ".halosimrc")
}

// applyRCDefaults reads KEY=VALUE pairs from the existing files among paths
// and applies them to flags not given on the command line. Keys name flags
// with '_' in place of '-' and any case, e.g. MAX_ITERS=1000. Later files
// override earlier ones; explicit flags always win.
func applyRCDefaults(flags *pflag.FlagSet, paths []string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	values, err := godotenv.Read(existing...)
	if err != nil {
		return fmt.Errorf("reading rc files %v: %w", existing, err)
	}

	for key, value := range values {
		name := strings.ReplaceAll(strings.ToLower(key), "_", "-")
		flag := flags.Lookup(name)
		if flag == nil {
			logrus.Warnf("Ignoring unknown option %q in rc files", key)
			continue
		}
		if flag.Changed {
			continue
		}
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("rc option %s=%q: %w", key, value, err)
		}
	}
	return nil
}
