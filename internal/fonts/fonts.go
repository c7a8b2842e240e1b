// Package fonts provides the fixed font catalog used by the composition
// engine. The catalog is built once at process start: the embedded Go fonts
// are always available, and TTF files found in an optional fonts directory
// override or extend them. Fonts are immutable after construction.
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultID is the font used when a request does not name one.
const DefaultID = "thick"

// Font is a parsed typeface from the catalog.
type Font struct {
	ID    string
	Alias string
	ttf   *truetype.Font
}

// Face returns a font.Face at the given point size.
func (f *Font) Face(points float64) font.Face {
	return truetype.NewFace(f.ttf, &truetype.Options{
		Size:    points,
		Hinting: font.HintingFull,
	})
}

// Catalog maps font ids (and aliases) to parsed fonts.
type Catalog struct {
	byID map[string]*Font
	ids  []string
}

// New builds the catalog. dir may be empty; when set, every *.ttf in it is
// parsed and registered under its base name, replacing an embedded entry
// with the same id. A file that fails to parse is skipped with a warning
// from the caller's logger; a corrupt embedded font is fatal.
func New(dir string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Font)}

	embedded := []struct {
		id, alias string
		data      []byte
	}{
		{"thick", "titilliumweb", gobold.TTF},
		{"thin", "notosans", goregular.TTF},
		{"comic", "kalam", goitalic.TTF},
	}
	for _, e := range embedded {
		ttf, err := truetype.Parse(e.data)
		if err != nil {
			return nil, fmt.Errorf("fonts: parse embedded %s: %w", e.id, err)
		}
		c.register(&Font{ID: e.id, Alias: e.alias, ttf: ttf})
	}

	if dir != "" {
		if err := c.loadDir(dir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Resolve looks up a font by id or alias, case-insensitively. The boolean
// reports whether the id was known; unknown ids let the normalizer drop
// the parameter instead of erroring.
func (c *Catalog) Resolve(id string) (*Font, bool) {
	if id == "" {
		id = DefaultID
	}
	f, ok := c.byID[strings.ToLower(id)]
	return f, ok
}

// Default returns the catalog's default font.
func (c *Catalog) Default() *Font {
	f, _ := c.Resolve(DefaultID)
	return f
}

// IDs returns the registered font ids in registration order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.ids...)
}

func (c *Catalog) register(f *Font) {
	if _, exists := c.byID[f.ID]; !exists {
		c.ids = append(c.ids, f.ID)
	}
	c.byID[f.ID] = f
	if f.Alias != "" {
		c.byID[f.Alias] = f
	}
}

func (c *Catalog) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("fonts: read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".ttf") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		ttf, err := truetype.Parse(data)
		if err != nil {
			// Not fatal: an unreadable custom font must not take the
			// service down.
			continue
		}
		id := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		c.register(&Font{ID: id, ttf: ttf})
	}
	return nil
}
