package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/adapters/fs"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
)

func newClient(t *testing.T) (*fs.Client, string) {
	t.Helper()
	dir := t.TempDir()
	client, err := fs.New(&fs.Config{BaseDirectory: dir})
	gt.NoError(t, err).Required()
	return client, dir
}

func TestClient_PutAndGet(t *testing.T) {
	ctx := context.Background()
	client, dir := newClient(t)

	data := []byte("encoded volume bytes")
	gt.NoError(t, client.Put(ctx, "scan/scan_trans.nii.gz", data))

	loaded, err := client.Get(ctx, "scan/scan_trans.nii.gz")
	gt.NoError(t, err)
	gt.Equal(t, loaded, data)

	// Nested directories are created under the base directory.
	_, err = os.Stat(filepath.Join(dir, "scan", "scan_trans.nii.gz"))
	gt.NoError(t, err)
}

func TestClient_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	gt.NoError(t, client.Put(ctx, "a.bin", []byte("first")))
	gt.NoError(t, client.Put(ctx, "a.bin", []byte("second")))

	loaded, err := client.Get(ctx, "a.bin")
	gt.NoError(t, err)
	gt.Equal(t, loaded, []byte("second"))
}

func TestClient_GetMissingKey(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	_, err := client.Get(ctx, "no/such/file.bin")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrStorageKeyNotFound))
}

func TestClient_RejectsUnsafeKeys(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	for _, key := range []string{
		"",
		"/etc/passwd",
		"../outside.bin",
		"a/../../outside.bin",
		"a\\b.bin",
		"bad\x00key",
	} {
		err := client.Put(ctx, key, []byte("x"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, apperr.ErrUnsafeStorageKey))

		_, err = client.Get(ctx, key)
		gt.Error(t, err)
		gt.True(t, errors.Is(err, apperr.ErrUnsafeStorageKey))
	}
}

func TestClient_NoLeftoverTempFiles(t *testing.T) {
	ctx := context.Background()
	client, dir := newClient(t)

	gt.NoError(t, client.Put(ctx, "out.bin", []byte("payload")))

	entries, err := os.ReadDir(dir)
	gt.NoError(t, err).Required()
	gt.Equal(t, len(entries), 1)
	gt.Equal(t, entries[0].Name(), "out.bin")
}

func TestNew_CreatesBaseDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	_, err := fs.New(&fs.Config{BaseDirectory: dir})
	gt.NoError(t, err).Required()

	info, err := os.Stat(dir)
	gt.NoError(t, err).Required()
	gt.True(t, info.IsDir())
}

func TestNew_RejectsEmptyBaseDirectory(t *testing.T) {
	_, err := fs.New(&fs.Config{})
	gt.Error(t, err)
}
