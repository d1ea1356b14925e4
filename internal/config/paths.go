// Package config provides configuration management for sve.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the private home directory.
const HomeEnv = "SVE_HOME"

// Paths holds the locations sve reads and writes.
type Paths struct {
	// Home holds the config, working images and negotiation scripts.
	// Defaults to ~/.sve.
	Home string

	// ConfigFile is the path to the main config file.
	ConfigFile string

	// StateFile records the last connection per port.
	StateFile string
}

// GetPaths returns the paths under $SVE_HOME, or ~/.sve when unset.
func GetPaths() (*Paths, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		home = filepath.Join(userHome, ".sve")
	}
	return NewPaths(home), nil
}

// NewPaths returns the paths rooted at home.
func NewPaths(home string) *Paths {
	return &Paths{
		Home:       home,
		ConfigFile: filepath.Join(home, "config.yaml"),
		StateFile:  filepath.Join(home, "state.yaml"),
	}
}

// EnsureHome creates the private home directory if it doesn't exist.
func (p *Paths) EnsureHome() error {
	return os.MkdirAll(p.Home, 0700)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
