package apperr

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures for callers that branch on error kind
// rather than on sentinel identity.
var (
	ErrTagKeyMissing = goerr.NewTag("key_missing")
	ErrTagBackend    = goerr.NewTag("backend")
	ErrTagValidation = goerr.NewTag("validation")
	ErrTagIO         = goerr.NewTag("io")
)

var (
	// ErrKeyMissing is returned when a configured record key is absent and
	// the transform does not allow missing keys.
	ErrKeyMissing = goerr.New("required key is missing from record",
		goerr.T(ErrTagKeyMissing)).ID("ERR_KEY_MISSING")

	// ErrNoSuitableReader is returned when every candidate reader declined
	// or failed to load an input.
	ErrNoSuitableReader = goerr.New("no suitable image reader for input",
		goerr.T(ErrTagBackend)).ID("ERR_NO_SUITABLE_READER")

	// ErrUnsupportedExtension is returned when no writer claims the
	// requested output extension.
	ErrUnsupportedExtension = goerr.New("unsupported output extension",
		goerr.T(ErrTagBackend)).ID("ERR_UNSUPPORTED_EXTENSION")

	// ErrUnknownBackend is returned when a reader or writer requested by
	// registry name is not registered.
	ErrUnknownBackend = goerr.New("unknown backend name",
		goerr.T(ErrTagBackend)).ID("ERR_UNKNOWN_BACKEND")

	// ErrUnsupportedValue is returned when a record value has a type the
	// transform cannot hand to its service.
	ErrUnsupportedValue = goerr.New("unsupported record value type",
		goerr.T(ErrTagValidation)).ID("ERR_UNSUPPORTED_VALUE")

	// ErrStorageKeyNotFound is returned by storage adapters for absent keys.
	ErrStorageKeyNotFound = goerr.New("storage key not found",
		goerr.T(ErrTagIO)).ID("ERR_STORAGE_KEY_NOT_FOUND")

	// ErrUnsafeStorageKey is returned for keys that would escape the
	// storage root.
	ErrUnsafeStorageKey = goerr.New("unsafe storage key",
		goerr.T(ErrTagValidation)).ID("ERR_UNSAFE_STORAGE_KEY")
)
