package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// fileEntry is the on-disk shape of one setting: {"Type": tag, "Value": v}.
type fileEntry struct {
	Type  int             `json:"Type"`
	Value json.RawMessage `json:"Value"`
}

// FileBackend stores settings as a JSON document. Saves go through a temp
// file in the same directory followed by a rename.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a backend for path on fs.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fs, path: path}
}

// Load reads and decodes the settings file. A missing, empty or corrupt file
// and any unknown type tag are errors.
func (b *FileBackend) Load(_ context.Context) (map[string]Value, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	var doc map[string]fileEntry
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", b.path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse %s: %w: not an object", b.path, ErrSchema)
	}
	out := make(map[string]Value, len(doc))
	for key, fe := range doc {
		v, err := Decode(fe.Type, fe.Value)
		if err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		out[key] = v
	}
	return out, nil
}

// Save encodes values and atomically replaces the settings file.
func (b *FileBackend) Save(_ context.Context, values map[string]Value) (err error) {
	doc := make(map[string]fileEntry, len(values))
	for key, v := range values {
		tag, raw, encErr := Encode(v)
		if encErr != nil {
			return fmt.Errorf("encode %q: %w", key, encErr)
		}
		doc[key] = fileEntry{Type: tag, Value: raw}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(b.fs, dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = b.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = b.fs.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
