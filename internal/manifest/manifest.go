// Package manifest reads the YAML list of assets to preload.
//
//	textures:
//	  - images/hero.png
//	  - images/tiles.png.lz4
//	fonts:
//	  - path: fonts/go.ttf
//	    size: 32
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/rescache/asset/font"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("manifest: invalid entry")

// Manifest lists textures (by path) and fonts (by path and size).
type Manifest struct {
	Textures []string       `yaml:"textures"`
	Fonts    []font.Details `yaml:"fonts"`
}

// Len returns the total number of assets.
func (m *Manifest) Len() int { return len(m.Textures) + len(m.Fonts) }

// Parse decodes and validates a manifest. Unknown fields are rejected.
// An empty document is a valid, empty manifest.
func Parse(r io.Reader) (*Manifest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses the manifest file at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Validate rejects empty paths and zero font sizes.
func (m *Manifest) Validate() error {
	for i, p := range m.Textures {
		if p == "" {
			return fmt.Errorf("%w: textures[%d]: empty path", ErrInvalid, i)
		}
	}
	for i, f := range m.Fonts {
		if f.Path == "" {
			return fmt.Errorf("%w: fonts[%d]: empty path", ErrInvalid, i)
		}
		if f.Size == 0 {
			return fmt.Errorf("%w: fonts[%d] (%s): size must be > 0", ErrInvalid, i, f.Path)
		}
	}
	return nil
}
