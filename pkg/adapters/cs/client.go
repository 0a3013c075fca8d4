// Package cs provides a Google Cloud Storage adapter, letting savers
// target a bucket instead of the local filesystem.
package cs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
)

// Client writes encoded volumes to a Cloud Storage bucket.
type Client struct {
	client *storage.Client
	bucket string
	prefix string
}

// Option is a functional option for Client.
type Option func(*Client)

// WithPrefix prepends a fixed prefix to every object key.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = prefix
	}
}

// New creates a new Cloud Storage client using ambient credentials.
func New(ctx context.Context, bucketName string, opts ...Option) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Cloud Storage client")
	}
	c := &Client{client: client, bucket: bucketName}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Put uploads data to the bucket under prefix+key.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	obj := c.client.Bucket(c.bucket).Object(c.prefix + key)
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write object",
			goerr.V("bucket", c.bucket), goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize object",
			goerr.V("bucket", c.bucket), goerr.V("key", key))
	}
	return nil
}

// Get downloads an object from the bucket.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj := c.client.Bucket(c.bucket).Object(c.prefix + key)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(apperr.ErrStorageKeyNotFound, "no such object",
				goerr.V("bucket", c.bucket), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to open object reader",
			goerr.V("bucket", c.bucket), goerr.V("key", key))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object",
			goerr.V("bucket", c.bucket), goerr.V("key", key))
	}
	return data, nil
}

var _ interfaces.Storage = (*Client)(nil)
