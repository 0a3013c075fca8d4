package fs

import (
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
)

// Config defines the configuration for the filesystem storage adapter.
type Config struct {
	BaseDirectory string      `yaml:"base_directory"`
	Permissions   os.FileMode `yaml:"permissions,omitempty"`
}

// Validate normalizes the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.BaseDirectory == "" {
		return goerr.New("base_directory is required")
	}
	absPath, err := filepath.Abs(c.BaseDirectory)
	if err != nil {
		return goerr.Wrap(err, "invalid base_directory", goerr.V("dir", c.BaseDirectory))
	}
	c.BaseDirectory = absPath

	if c.Permissions == 0 {
		c.Permissions = 0755
	}
	return nil
}

// EnsureDirectory creates the base directory if it doesn't exist.
func (c *Config) EnsureDirectory() error {
	if err := os.MkdirAll(c.BaseDirectory, c.Permissions); err != nil {
		return goerr.Wrap(err, "failed to create base directory", goerr.V("dir", c.BaseDirectory))
	}
	return nil
}
