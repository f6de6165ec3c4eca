// Package texture loads decoded RGBA textures from a file system and plugs
// them into a resource.Manager.
//
// Supported formats: PNG, JPEG, GIF (first frame), BMP, TIFF and WebP.
// Any file may additionally be lz4-compressed; a ".lz4" suffix is stripped
// and the stream decompressed before decoding.
package texture

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/pierrec/lz4"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/IvanBrykalov/rescache/resource"
)

// ErrEmptyPath is returned for an empty texture path.
var ErrEmptyPath = errors.New("texture: empty path")

// Texture is a decoded image ready for upload.
type Texture struct {
	// Path is the descriptor the texture was loaded with.
	Path string
	// Format is the decoder name reported by image.Decode ("png", "jpeg", ...).
	Format string
	// Image holds the pixels, always converted to RGBA with a zero origin.
	Image *image.RGBA
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.Image.Rect.Dx() }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.Image.Rect.Dy() }

// Loader decodes textures from fsys. It implements resource.Loader[string, *Texture].
type Loader struct {
	fsys fs.FS
	log  *zap.Logger
}

// NewLoader returns a loader reading from fsys. A nil log disables logging.
func NewLoader(fsys fs.FS, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fsys: fsys, log: log.Named("texture")}
}

// Load opens p (a slash-separated fs.FS path), decodes it and converts it to RGBA.
func (l *Loader) Load(p string) (*Texture, error) {
	if p == "" {
		return nil, ErrEmptyPath
	}
	f, err := l.fsys.Open(Key(p))
	if err != nil {
		return nil, fmt.Errorf("texture: open %s: %w", p, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(p, ".lz4") {
		r = lz4.NewReader(f)
	}

	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", p, err)
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	l.log.Debug("decoded", zap.String("path", p), zap.String("format", format),
		zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	return &Texture{Path: p, Format: format, Image: dst}, nil
}

// Key normalizes a texture path so that equivalent spellings
// ("a/./b.png", "a//b.png") share one cache entry.
func Key(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// Manager caches textures by normalized path.
type Manager = resource.Manager[string, string, *Texture]

// NewManager returns a texture cache backed by l.
func NewManager(l *Loader, opt resource.Options) *Manager {
	return resource.NewKeyed[string, string, *Texture](l, Key, opt)
}

// Compile-time check: ensure Loader implements resource.Loader.
var _ resource.Loader[string, *Texture] = (*Loader)(nil)
