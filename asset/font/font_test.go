package font

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/IvanBrykalov/rescache/resource"
)

// countingFS counts Open calls. It only implements fs.FS so that
// fs.ReadFile goes through Open.
type countingFS struct {
	files fstest.MapFS
	opens int
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens++
	return c.files.Open(name)
}

func testFS() *countingFS {
	return &countingFS{files: fstest.MapFS{
		"fonts/go.ttf":  {Data: goregular.TTF},
		"fonts/bad.ttf": {Data: []byte("definitely not sfnt")},
	}}
}

func TestLoader_LoadsFace(t *testing.T) {
	t.Parallel()

	f, err := NewLoader(testFS()).Load(Details{Path: "fonts/go.ttf", Size: 32})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = f.Close() })

	if f.Family != "Go" {
		t.Fatalf("family: got %q", f.Family)
	}
	if f.Metrics.Height <= 0 || f.Metrics.Ascent <= 0 {
		t.Fatalf("bad metrics: %+v", f.Metrics)
	}
	if adv, ok := f.Face.GlyphAdvance('A'); !ok || adv <= 0 {
		t.Fatalf("GlyphAdvance('A') = %v, %v", adv, ok)
	}
}

// Larger sizes give taller faces.
func TestLoader_SizeScalesMetrics(t *testing.T) {
	t.Parallel()

	l := NewLoader(testFS(), WithHinting(xfont.HintingNone))
	small, err := l.Load(Details{Path: "fonts/go.ttf", Size: 12})
	if err != nil {
		t.Fatal(err)
	}
	large, err := l.Load(Details{Path: "fonts/go.ttf", Size: 48})
	if err != nil {
		t.Fatal(err)
	}
	if large.Metrics.Height <= small.Metrics.Height {
		t.Fatalf("48pt height %v must exceed 12pt height %v", large.Metrics.Height, small.Metrics.Height)
	}
}

func TestLoader_Errors(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	l := NewLoader(fsys)
	tests := []struct {
		name string
		d    Details
		want error
	}{
		{"empty path", Details{Size: 12}, ErrEmptyPath},
		{"zero size", Details{Path: "fonts/go.ttf"}, ErrInvalidSize},
		{"missing", Details{Path: "fonts/none.ttf", Size: 12}, fs.ErrNotExist},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.Load(tc.d); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
	if fsys.opens != 1 {
		t.Fatalf("invalid details must be rejected before any file access, opens=%d", fsys.opens)
	}

	if _, err := l.Load(Details{Path: "fonts/bad.ttf", Size: 12}); err == nil {
		t.Fatal("garbage font must fail to parse")
	}
}

// One parse per (path, size); a second size is a separate entry.
func TestManager_KeyedByPathAndSize(t *testing.T) {
	t.Parallel()

	fsys := testFS()
	m := NewManager(NewLoader(fsys), resource.Options{})
	t.Cleanup(func() { _ = m.Close() })

	d := Details{Path: "fonts/go.ttf", Size: 32}
	h1, err := m.Load(d)
	if err != nil {
		t.Fatal(err)
	}
	defer h1.Release()
	h2, err := m.Load(Details{Path: "fonts/go.ttf", Size: 32})
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Release()
	h3, err := m.Load(Details{Path: "fonts/go.ttf", Size: 16})
	if err != nil {
		t.Fatal(err)
	}
	defer h3.Release()

	if !h1.Same(h2) || h1.Same(h3) {
		t.Fatal("entries must be keyed by path and size")
	}
	if fsys.opens != 2 || m.Len() != 2 {
		t.Fatalf("want 2 parses, opens=%d len=%d", fsys.opens, m.Len())
	}
}

// closeFace is a face stub that only counts Close calls.
type closeFace struct {
	xfont.Face
	closed int
}

func (c *closeFace) Close() error {
	c.closed++
	return nil
}

// The face is closed when the last handle goes away, not when the manager closes.
func TestManager_ClosesFaceOnLastRelease(t *testing.T) {
	t.Parallel()

	cf := &closeFace{}
	m := resource.New[Details, *Font](resource.LoaderFunc[Details, *Font](func(d Details) (*Font, error) {
		return &Font{Details: d, Face: cf}, nil
	}), resource.Options{})

	h, err := m.Load(Details{Path: "x.ttf", Size: 10})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if cf.closed != 0 {
		t.Fatal("face closed while a handle is outstanding")
	}
	if err := h.Release(); err != nil {
		t.Fatal(err)
	}
	if cf.closed != 1 {
		t.Fatalf("face must be closed once, closed=%d", cf.closed)
	}
}

func TestDetails_String(t *testing.T) {
	t.Parallel()

	if s := (Details{Path: "a.ttf", Size: 9}).String(); s != "a.ttf@9" {
		t.Fatalf("got %q", s)
	}
}
