package imageio

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/voxkit/voxkit/pkg/backend/nifti"
	"github.com/voxkit/voxkit/pkg/backend/npy"
	"github.com/voxkit/voxkit/pkg/backend/pic"
	"github.com/voxkit/voxkit/pkg/domain/apperr"
	"github.com/voxkit/voxkit/pkg/domain/interfaces"
)

// Backend registries. Readers and writers requested by name are resolved
// here once at construction time, never during Apply.
var (
	registryMu sync.RWMutex

	readerFactories = map[string]func() interfaces.ImageReader{
		"nifti": func() interfaces.ImageReader { return nifti.NewReader() },
		"pic":   func() interfaces.ImageReader { return pic.NewReader() },
		"npy":   func() interfaces.ImageReader { return npy.NewReader() },
	}

	writerFactories = map[string]func() interfaces.ImageWriter{
		"nifti": func() interfaces.ImageWriter { return nifti.NewWriter() },
		"pic":   func() interfaces.ImageWriter { return pic.NewWriter() },
		"npy":   func() interfaces.ImageWriter { return npy.NewWriter() },
	}
)

// RegisterReaderFactory makes a reader constructible by name.
func RegisterReaderFactory(name string, factory func() interfaces.ImageReader) {
	registryMu.Lock()
	defer registryMu.Unlock()
	readerFactories[name] = factory
}

// RegisterWriterFactory makes a writer constructible by name.
func RegisterWriterFactory(name string, factory func() interfaces.ImageWriter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	writerFactories[name] = factory
}

// NewReaderByName constructs a registered reader.
func NewReaderByName(name string) (interfaces.ImageReader, error) {
	registryMu.RLock()
	factory, ok := readerFactories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, goerr.Wrap(apperr.ErrUnknownBackend, "reader not registered", goerr.V("name", name))
	}
	return factory(), nil
}

// NewWriterByName constructs a registered writer.
func NewWriterByName(name string) (interfaces.ImageWriter, error) {
	registryMu.RLock()
	factory, ok := writerFactories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, goerr.Wrap(apperr.ErrUnknownBackend, "writer not registered", goerr.V("name", name))
	}
	return factory(), nil
}

// defaultReaders returns the built-in reader candidates in try order.
func defaultReaders() []interfaces.ImageReader {
	return []interfaces.ImageReader{nifti.NewReader(), pic.NewReader(), npy.NewReader()}
}

// defaultWriters returns the built-in writer candidates in try order.
func defaultWriters() []interfaces.ImageWriter {
	return []interfaces.ImageWriter{nifti.NewWriter(), pic.NewWriter(), npy.NewWriter()}
}
