package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveFile writes v to path through codec. The file is written to a
// temporary sibling first and renamed into place.
func SaveFile(path string, codec Codec, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer os.Remove(tmp.Name())

	encodeErr := codec.Encode(tmp, v)
	closeErr := tmp.Close()

	if encodeErr != nil {
		return fmt.Errorf("encode %s: %w", path, encodeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// LoadFile decodes path into v, choosing the codec from the extension.
func LoadFile(path string, v any) error {
	codec, err := CodecForPath(path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	err = codec.Decode(file, v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}

// Persister saves and loads documents of one type under a fixed basename.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister returns a persister writing basename plus the codec extension.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{basename: basename, codec: codec}
}

// Path returns the file the persister uses inside dir.
func (p *Persister[T]) Path(dir string) string {
	return filepath.Join(dir, p.basename+p.codec.Extension())
}

// Save writes doc into dir and returns the file path.
func (p *Persister[T]) Save(dir string, doc *T) (string, error) {
	path := p.Path(dir)

	return path, SaveFile(path, p.codec, doc)
}

// Load reads the document from dir.
func (p *Persister[T]) Load(dir string) (*T, error) {
	var doc T

	file, err := os.Open(p.Path(dir))
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	err = p.codec.Decode(file, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return &doc, nil
}
