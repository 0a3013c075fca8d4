package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
)

// Client provides filesystem storage rooted at a base directory. Keys
// are slash-separated relative paths; intermediate directories are
// created on demand. Writes go through a temporary file and a rename so
// a crashed save never leaves a partial output behind.
type Client struct {
	baseDir     string
	permissions os.FileMode
}

// New creates a new filesystem storage client.
func New(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config")
	}
	if err := config.EnsureDirectory(); err != nil {
		return nil, err
	}
	return &Client{
		baseDir:     config.BaseDirectory,
		permissions: config.Permissions,
	}, nil
}

// Put stores data under key, creating parent directories as needed.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	filePath := filepath.Join(c.baseDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(filePath), c.permissions); err != nil {
		return goerr.Wrap(err, "failed to create directory", goerr.V("key", key))
	}

	tmpPath := filePath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write file", goerr.V("key", key))
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return goerr.Wrap(err, "failed to finalize file", goerr.V("key", key))
	}
	return nil
}

// Get retrieves data by key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	filePath := filepath.Join(c.baseDir, filepath.FromSlash(key))

	// #nosec G304 - key is validated against path traversal above
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(apperr.ErrStorageKeyNotFound, "no such file", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("key", key))
	}
	return data, nil
}

// validateKey rejects keys that could escape the base directory.
func validateKey(key string) error {
	if key == "" {
		return goerr.Wrap(apperr.ErrUnsafeStorageKey, "key cannot be empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return goerr.Wrap(apperr.ErrUnsafeStorageKey, "absolute or backslash key", goerr.V("key", key))
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return goerr.Wrap(apperr.ErrUnsafeStorageKey, "path traversal in key", goerr.V("key", key))
		}
	}
	for _, char := range key {
		if char < 32 || char == 127 {
			return goerr.Wrap(apperr.ErrUnsafeStorageKey, "control character in key")
		}
	}
	return nil
}

var _ interfaces.Storage = (*Client)(nil)
