// Package config loads ledger settings from files, LEDGER_ variables and
// flags through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves $VAR and ${VAR} references and then a leading ~.
// Unset variables expand to nothing; ~user forms are left alone.
func ExpandPath(path string) string {
	return expandPath(path, os.UserHomeDir, os.Getenv)
}

func expandPath(path string, home func() (string, error), getenv func(string) string) string {
	path = os.Expand(strings.TrimSpace(path), getenv)

	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && !os.IsPathSeparator(rest[0])) {
		return path
	}
	dir, err := home()
	if err != nil {
		return path
	}
	return filepath.Join(dir, rest)
}
