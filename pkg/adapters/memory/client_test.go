package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/voxkit/voxkit/pkg/adapters/memory"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
)

func TestClient_PutAndGet(t *testing.T) {
	ctx := context.Background()
	client := memory.New()

	data := []byte("payload")
	gt.NoError(t, client.Put(ctx, "a/b.bin", data))

	loaded, err := client.Get(ctx, "a/b.bin")
	gt.NoError(t, err)
	gt.Equal(t, loaded, data)

	// Stored bytes are isolated from the caller's slice.
	data[0] = 'X'
	loaded2, err := client.Get(ctx, "a/b.bin")
	gt.NoError(t, err)
	gt.Equal(t, loaded2, []byte("payload"))
}

func TestClient_GetMissingKey(t *testing.T) {
	ctx := context.Background()
	client := memory.New()

	_, err := client.Get(ctx, "missing")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, apperr.ErrStorageKeyNotFound))
}

func TestClient_KeysSorted(t *testing.T) {
	ctx := context.Background()
	client := memory.New()

	gt.NoError(t, client.Put(ctx, "b", nil))
	gt.NoError(t, client.Put(ctx, "a", nil))
	gt.NoError(t, client.Put(ctx, "c", nil))

	gt.Equal(t, client.Keys(), []string{"a", "b", "c"})
}
