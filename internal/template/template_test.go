package template

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memeforge/internal/config"
)

// testConfig returns a Config rooted at a fresh temp templates dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "testing",
		BaseURL:         "http://memeforge.test",
		TemplatesDir:    t.TempDir(),
		DownloadTimeout: 5 * time.Second,
	}
}

// writeTemplate materializes a template directory with an optional config
// body and a small valid PNG background.
func writeTemplate(t *testing.T, dir, id, configBody string) {
	t.Helper()
	tplDir := filepath.Join(dir, id)
	if err := os.MkdirAll(tplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if configBody != "" {
		if err := os.WriteFile(filepath.Join(tplDir, "config.yml"), []byte(configBody), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(tplDir, "default.png"), pngBytes(t, 40, 30), 0o644); err != nil {
		t.Fatal(err)
	}
}

// pngBytes produces a small valid PNG for backgrounds and mocked downloads.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, G: 50, B: 50, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestGetLoadsConfigAndDefaults(t *testing.T) {
	cfg := testConfig(t)
	writeTemplate(t, cfg.TemplatesDir, "iw", `
name: Insanity Wolf
source: http://knowyourmeme.com/memes/insanity-wolf
text:
  - anchor_x: 0.05
    anchor_y: 0.05
    scale_x: 0.9
    scale_y: 0.2
  - anchor_x: 0.05
    anchor_y: 0.75
    scale_x: 0.9
    scale_y: 0.2
example:
  - does testing
  - in production
`)
	repo := NewRepository(cfg, nil)

	tpl, err := repo.Get("iw")
	if err != nil {
		t.Fatalf("Get(iw): %v", err)
	}
	if tpl.Name != "Insanity Wolf" {
		t.Errorf("Name = %q", tpl.Name)
	}
	if len(tpl.Boxes) != 2 {
		t.Fatalf("Boxes = %d, want 2", len(tpl.Boxes))
	}
	if tpl.Boxes[0].Transform != TransformUpper {
		t.Errorf("default transform = %q, want upper", tpl.Boxes[0].Transform)
	}
	if tpl.Boxes[0].Color != "white" || tpl.Boxes[0].Align != "center" {
		t.Errorf("defaults not applied: %+v", tpl.Boxes[0])
	}
	if tpl.Boxes[1].Stop != 1 {
		t.Errorf("Stop default = %v, want 1", tpl.Boxes[1].Stop)
	}
	if !tpl.Valid {
		t.Error("template with background should be valid")
	}
	if got := tpl.Example; len(got) != 2 || got[0] != "does testing" {
		t.Errorf("Example = %v", got)
	}
}

func TestGetWithoutConfigUsesTwoBoxLayout(t *testing.T) {
	cfg := testConfig(t)
	writeTemplate(t, cfg.TemplatesDir, "fry", "")
	repo := NewRepository(cfg, nil)

	tpl, err := repo.Get("fry")
	if err != nil {
		t.Fatalf("Get(fry): %v", err)
	}
	if len(tpl.Boxes) != 2 {
		t.Fatalf("Boxes = %d, want classic top/bottom layout", len(tpl.Boxes))
	}
	if tpl.Boxes[1].AnchorY != 0.8 {
		t.Errorf("bottom box anchor = %v, want 0.8", tpl.Boxes[1].AnchorY)
	}
}

func TestGetUnknownAndReserved(t *testing.T) {
	cfg := testConfig(t)
	repo := NewRepository(cfg, nil)

	for _, id := range []string{"nope", "_error", "_anything", ""} {
		if _, err := repo.Get(id); err != ErrNotFound {
			t.Errorf("Get(%q) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestTemplateWithoutBackgroundIsInvalid(t *testing.T) {
	cfg := testConfig(t)
	tplDir := filepath.Join(cfg.TemplatesDir, "bare")
	if err := os.MkdirAll(tplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	repo := NewRepository(cfg, nil)

	tpl, err := repo.Get("bare")
	if err != nil {
		t.Fatalf("Get(bare): %v", err)
	}
	if tpl.Valid {
		t.Error("template without a background must not be valid")
	}
}

func TestSnapshotCaching(t *testing.T) {
	cfg := testConfig(t)
	writeTemplate(t, cfg.TemplatesDir, "iw", "name: First\n")
	repo := NewRepository(cfg, nil)

	first, err := repo.Get("iw")
	if err != nil {
		t.Fatal(err)
	}

	// Outside development mode, edits do not show up until restart.
	if err := os.WriteFile(filepath.Join(cfg.TemplatesDir, "iw", "config.yml"), []byte("name: Second\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	second, err := repo.Get("iw")
	if err != nil {
		t.Fatal(err)
	}
	if first.Name != second.Name {
		t.Errorf("cached snapshot changed: %q then %q", first.Name, second.Name)
	}
}

func TestPlaceholderAlwaysAvailable(t *testing.T) {
	cfg := testConfig(t)
	repo := NewRepository(cfg, nil)

	tpl := repo.Placeholder()
	if tpl.ID != ErrorTemplateID {
		t.Errorf("placeholder id = %q", tpl.ID)
	}
	if len(tpl.Boxes) == 0 {
		t.Error("placeholder needs text boxes to carry the error message")
	}
	if tpl.Valid {
		t.Error("placeholder is reserved and must not report valid")
	}
}

func TestListSkipsReservedAndCustom(t *testing.T) {
	cfg := testConfig(t)
	writeTemplate(t, cfg.TemplatesDir, "iw", "")
	writeTemplate(t, cfg.TemplatesDir, "fry", "")
	writeTemplate(t, cfg.TemplatesDir, "_error", "")
	writeTemplate(t, cfg.TemplatesDir, "custom-abc123", "")
	repo := NewRepository(cfg, nil)

	got := repo.List()
	if len(got) != 2 {
		t.Fatalf("List() = %d templates, want 2", len(got))
	}
	if got[0].ID != "fry" || got[1].ID != "iw" {
		t.Errorf("List() order = %s, %s", got[0].ID, got[1].ID)
	}
}

func TestHasStyleIsCaseInsensitive(t *testing.T) {
	tpl := Template{Styles: []string{"Maga", "bernie"}}
	if !tpl.HasStyle("maga") || !tpl.HasStyle("BERNIE") {
		t.Error("style matching should be case-insensitive")
	}
	if tpl.HasStyle("unknown") {
		t.Error("unknown style matched")
	}
}

func TestAnimatable(t *testing.T) {
	static := Template{Boxes: []TextBox{{Stop: 1}}}
	if static.Animatable() {
		t.Error("static template reported animatable")
	}

	timed := Template{Boxes: []TextBox{{Start: 0, Stop: 0.5}, {Start: 0.5, Stop: 1}}}
	if !timed.Animatable() {
		t.Error("template with time windows should be animatable")
	}
}

func TestVisibleAt(t *testing.T) {
	box := TextBox{Start: 0.25, Stop: 0.75}
	tests := []struct {
		at   float64
		want bool
	}{
		{0.0, false},
		{0.25, true},
		{0.5, true},
		{0.75, false},
		{1.0, false},
	}
	for _, tt := range tests {
		if got := box.VisibleAt(tt.at); got != tt.want {
			t.Errorf("VisibleAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestGetOrCreateOnlyInDevelopment(t *testing.T) {
	cfg := testConfig(t)
	repo := NewRepository(cfg, nil)
	if _, err := repo.GetOrCreate("fresh"); err != ErrNotFound {
		t.Errorf("GetOrCreate outside development = %v, want ErrNotFound", err)
	}

	cfg.Env = "development"
	tpl, err := repo.GetOrCreate("fresh")
	if err != nil {
		t.Fatalf("GetOrCreate in development: %v", err)
	}
	if tpl.ID != "fresh" {
		t.Errorf("id = %q", tpl.ID)
	}
	if _, err := os.Stat(filepath.Join(cfg.TemplatesDir, "fresh", "config.yml")); err != nil {
		t.Errorf("config.yml not materialized: %v", err)
	}
}
