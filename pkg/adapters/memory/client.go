// Package memory provides an in-memory storage adapter, used in tests
// and for dry runs where no file should reach disk.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
)

// Client stores blobs in a map guarded by a mutex.
type Client struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Client {
	return &Client{data: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), data...)
	return nil
}

// Get returns a copy of the data stored under key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.data[key]
	if !ok {
		return nil, goerr.Wrap(apperr.ErrStorageKeyNotFound, "no such entry", goerr.V("key", key))
	}
	return append([]byte(nil), data...), nil
}

// Keys returns every stored key in sorted order.
func (c *Client) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ interfaces.Storage = (*Client)(nil)
