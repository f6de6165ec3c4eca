// Package font loads sized font faces (TTF, OTF, TTC, OTC) from a file
// system and plugs them into a resource.Manager keyed by path and size.
package font

import (
	"errors"
	"fmt"
	"io/fs"
	"path"

	"go.uber.org/zap"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/IvanBrykalov/rescache/resource"
)

var (
	// ErrEmptyPath is returned for Details with an empty Path.
	ErrEmptyPath = errors.New("font: empty path")
	// ErrInvalidSize is returned for Details with a zero Size.
	ErrInvalidSize = errors.New("font: size must be > 0")
)

// DefaultDPI makes Size equal to pixels per em.
const DefaultDPI = 72

// Details identifies one rasterizable face: a font file at a point size.
// It is comparable and used directly as the cache key.
type Details struct {
	Path string `yaml:"path"`
	Size uint16 `yaml:"size"`
}

func (d Details) String() string { return fmt.Sprintf("%s@%d", d.Path, d.Size) }

// Font is a face ready for text rendering.
type Font struct {
	Details
	// Family is the name table family ("Go", "DejaVu Sans", ...), may be empty.
	Family  string
	Face    xfont.Face
	Metrics xfont.Metrics
}

// Close releases the face. Called by the last resource.Handle holder.
func (f *Font) Close() error { return f.Face.Close() }

// Loader parses font files from fsys. It implements resource.Loader[Details, *Font].
type Loader struct {
	fsys    fs.FS
	dpi     float64
	hinting xfont.Hinting
	log     *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithDPI sets the rendering resolution (default DefaultDPI).
func WithDPI(dpi float64) Option { return func(l *Loader) { l.dpi = dpi } }

// WithHinting sets glyph hinting (default font.HintingFull).
func WithHinting(h xfont.Hinting) Option { return func(l *Loader) { l.hinting = h } }

// WithLogger sets the logger (default no-op).
func WithLogger(log *zap.Logger) Option { return func(l *Loader) { l.log = log } }

// NewLoader returns a loader reading from fsys.
func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{fsys: fsys, dpi: DefaultDPI, hinting: xfont.HintingFull}
	for _, o := range opts {
		o(l)
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.dpi <= 0 {
		l.dpi = DefaultDPI
	}
	l.log = l.log.Named("font")
	return l
}

// Load reads d.Path and builds a face of d.Size. For collections the first
// font is used.
func (l *Loader) Load(d Details) (*Font, error) {
	if d.Path == "" {
		return nil, ErrEmptyPath
	}
	if d.Size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSize, d.Path)
	}

	data, err := fs.ReadFile(l.fsys, path.Clean(d.Path))
	if err != nil {
		return nil, fmt.Errorf("font: read %s: %w", d.Path, err)
	}
	coll, err := opentype.ParseCollection(data)
	if err != nil {
		return nil, fmt.Errorf("font: parse %s: %w", d.Path, err)
	}
	f, err := coll.Font(0)
	if err != nil {
		return nil, fmt.Errorf("font: parse %s: %w", d.Path, err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(d.Size),
		DPI:     l.dpi,
		Hinting: l.hinting,
	})
	if err != nil {
		return nil, fmt.Errorf("font: face %s: %w", d, err)
	}

	family, _ := f.Name(nil, sfnt.NameIDFamily)
	l.log.Debug("parsed", zap.Stringer("font", d), zap.String("family", family),
		zap.Int("fonts", coll.NumFonts()), zap.Int("glyphs", f.NumGlyphs()))
	return &Font{Details: d, Family: family, Face: face, Metrics: face.Metrics()}, nil
}

// Manager caches faces by (path, size).
type Manager = resource.Manager[Details, Details, *Font]

// NewManager returns a font cache backed by l.
func NewManager(l *Loader, opt resource.Options) *Manager {
	return resource.New[Details, *Font](l, opt)
}

// Compile-time check: ensure Loader implements resource.Loader.
var _ resource.Loader[Details, *Font] = (*Loader)(nil)
