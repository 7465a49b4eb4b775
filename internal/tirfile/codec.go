package tirfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the packed layout changes.
const SchemaVersion uint16 = 1

// PackExt is the extension of packed programs.
const PackExt = ".tirpack"

// ErrSchema reports a packed file written by an incompatible version.
var ErrSchema = errors.New("unsupported program schema")

// DecodeTOML parses a TOML program.
func DecodeTOML(r io.Reader) (*File, error) {
	var f File
	md, err := toml.NewDecoder(r).Decode(&f)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return &f, nil
}

// DecodePack parses a packed program and checks its schema.
func DecodePack(r io.Reader) (*File, error) {
	var f File
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, err
	}
	if f.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrSchema, f.Schema, SchemaVersion)
	}
	return &f, nil
}

// EncodePack writes f in packed form.
func EncodePack(w io.Writer, f *File) error {
	out := *f
	out.Schema = SchemaVersion
	return msgpack.NewEncoder(w).Encode(&out)
}

// Load reads a program, choosing the decoder by extension.
func Load(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var f *File
	if IsPack(path) {
		f, err = DecodePack(r)
	} else {
		f, err = DecodeTOML(r)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// WritePack atomically writes f to path in packed form.
func WritePack(path string, f *File) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if err := EncodePack(tmp, f); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// IsPack reports whether path names a packed program. The extension is
// matched case-insensitively.
func IsPack(path string) bool {
	return strings.EqualFold(filepath.Ext(path), PackExt)
}

// PackPath returns the packed file name for a TOML program path.
func PackPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + PackExt
}
