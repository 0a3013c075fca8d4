package safe

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/utils/errors"
)

func Close(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		errors.Handle(ctx, goerr.Wrap(err, "failed to close by safe.Close"))
	}
}
