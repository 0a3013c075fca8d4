// Package transform provides record-keyed transforms: thin adapters that
// apply an array-level image operation to selected keys of a data record.
package transform

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/model/record"
)

// mapTransform is the shared base of dictionary transforms: a fixed key
// set and the missing-key policy.
type mapTransform struct {
	keys             []string
	allowMissingKeys bool
}

func newMapTransform(keys []string, allowMissingKeys bool) (mapTransform, error) {
	if len(keys) == 0 {
		return mapTransform{}, goerr.New("transform needs at least one key")
	}
	return mapTransform{
		keys:             append([]string(nil), keys...),
		allowMissingKeys: allowMissingKeys,
	}, nil
}

// forEachKey visits the configured keys in order. A missing key either
// stops iteration with an error or is skipped, depending on the policy.
// The first error from fn aborts the remaining keys.
func (t mapTransform) forEachKey(rec record.Record, fn func(key string) error) error {
	for _, key := range t.keys {
		if !rec.Has(key) {
			if t.allowMissingKeys {
				continue
			}
			return goerr.Wrap(apperr.ErrKeyMissing,
				"configured key is absent and missing keys are not allowed",
				goerr.V("key", key))
		}
		if err := fn(key); err != nil {
			return err
		}
	}
	return nil
}

// warnDeprecated emits a deprecation signal for legacy option fields.
// Execution continues with the superseding behavior.
func warnDeprecated(transform string, fields ...string) {
	for _, f := range fields {
		slog.Warn("deprecated option ignored",
			slog.Group("deprecated",
				slog.String("transform", transform),
				slog.String("option", f)))
	}
}
