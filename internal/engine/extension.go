package engine

import (
	"github.com/petradb/petra/internal/errors"
)

// Extension is a loaded dynamic extension. Its terminate callback, if any,
// runs during close before the extension is unloaded.
type Extension struct {
	Name      string
	Terminate func(e *Engine) error
}

// LoadExtension registers an extension with the instance.
func (e *Engine) LoadExtension(ext *Extension) error {
	if e.Closing() {
		return errors.ShuttingDownError("extension load")
	}

	e.extMu.Lock()
	defer e.extMu.Unlock()
	e.extensions = append(e.extensions, ext)
	return nil
}

// unloadExtensions terminates and unloads every extension. Every unload
// runs; the first error is returned.
func (e *Engine) unloadExtensions() error {
	e.extMu.Lock()
	exts := e.extensions
	e.extensions = nil
	e.extMu.Unlock()

	var firstErr error
	for _, ext := range exts {
		if ext.Terminate != nil {
			if err := ext.Terminate(e); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func errDuplicateComponent(kind, name string) error {
	return errors.Newf(errors.Config, "%s %q already registered", kind, name)
}

// Collator compares keys for a custom sort order.
type Collator interface {
	Compare(a, b []byte) int
}

// Compressor compresses and decompresses blocks.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Encryptor encrypts and decrypts blocks.
type Encryptor interface {
	Encrypt(src []byte) ([]byte, error)
	Decrypt(src []byte) ([]byte, error)
}

// Extractor derives index keys from values.
type Extractor interface {
	Extract(key, value []byte) ([][]byte, error)
}

// DataSource is a generic pluggable data source.
type DataSource interface {
	OpenURI(uri string) (any, error)
}

// RegisterCollator registers a named collator.
func (e *Engine) RegisterCollator(name string, c Collator) error {
	return e.collators.add(name, c)
}

// RegisterCompressor registers a named compressor.
func (e *Engine) RegisterCompressor(name string, c Compressor) error {
	return e.compressors.add(name, c)
}

// RegisterDataSource registers a named data source.
func (e *Engine) RegisterDataSource(name string, d DataSource) error {
	return e.dataSources.add(name, d)
}

// RegisterEncryptor registers a named encryptor.
func (e *Engine) RegisterEncryptor(name string, c Encryptor) error {
	return e.encryptors.add(name, c)
}

// RegisterExtractor registers a named extractor.
func (e *Engine) RegisterExtractor(name string, x Extractor) error {
	return e.extractors.add(name, x)
}

// Collator returns a registered collator.
func (e *Engine) Collator(name string) (Collator, bool) {
	c, ok := e.collators.get(name)
	if !ok {
		return nil, false
	}
	return c.(Collator), true
}
