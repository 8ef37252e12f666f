// Package writer encodes transformed rasters and lands them in the output
// directory. Writes are atomic and filename collisions are rejected rather
// than overwritten, so concurrent batch items can never corrupt each other.
package writer

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/c0d3rb4b4/image-optimizer/internal/codec"
	"github.com/c0d3rb4b4/image-optimizer/internal/entities"
)

// Error carries the failure classification alongside the underlying cause.
type Error struct {
	Kind entities.ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ErrExists marks a rejected filename collision.
var ErrExists = errors.New("output file already exists")

type Writer struct {
	root string
}

// New creates a Writer rooted at dir, creating the directory if needed.
func New(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("writer: output directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("writer: mkdir %s: %w", dir, err)
	}
	return &Writer{root: dir}, nil
}

func (w *Writer) Root() string { return w.root }

// EncodeAndStore serialises the raster in the spec's format and persists it.
// hint is the caller-chosen output name, originalName the uploaded filename;
// both optional. Quality only applies to lossy formats.
func (w *Writer) EncodeAndStore(img image.Image, format codec.Format, quality int, hint, originalName string) (entities.OutputDescriptor, error) {
	var desc entities.OutputDescriptor

	data, err := codec.Encode(img, format, quality)
	if err != nil {
		return desc, &Error{Kind: entities.KindEncodeError, Err: err}
	}

	key := OutputName(hint, originalName, format)
	path := filepath.Join(w.root, key)
	if err := w.store(path, data); err != nil {
		return desc, &Error{Kind: entities.KindStorageError, Err: err}
	}

	b := img.Bounds()
	return entities.OutputDescriptor{
		Path:         path,
		Key:          key,
		Width:        b.Dx(),
		Height:       b.Dy(),
		Size:         int64(len(data)),
		OriginalName: originalName,
	}, nil
}

// store writes data to a temp file in the destination directory and links it
// into place. link(2) fails if the name is taken, which makes the collision
// check atomic; rename would silently overwrite.
func (w *Writer) store(path string, data []byte) error {
	tmp, err := os.CreateTemp(w.root, ".opt-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, filepath.Base(path))
		}
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}

// OutputName resolves the stored filename. A caller-supplied hint is
// sanitized and gets the format's extension enforced; otherwise the original
// filename is reused with an "_optimized" suffix; with neither available a
// UUID is generated.
func OutputName(hint, originalName string, format codec.Format) string {
	if base := sanitizeBase(hint); base != "" {
		return base + format.Ext()
	}
	if base := sanitizeBase(originalName); base != "" {
		return base + "_optimized" + format.Ext()
	}
	return uuid.NewString() + format.Ext()
}

// sanitizeBase strips any path components and the extension from name,
// returning "" when nothing usable remains.
func sanitizeBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		return ""
	}
	return name
}
