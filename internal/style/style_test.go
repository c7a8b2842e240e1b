package style

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"memeforge/internal/config"
	"memeforge/internal/template"
)

// fakeRepo implements Repository with canned answers per token.
type fakeRepo struct {
	err   error
	calls int
}

func (f *fakeRepo) FetchStyle(ctx context.Context, tpl template.Template, token, suffix string, force bool) error {
	f.calls++
	return f.err
}

// testTemplate builds a real on-disk template with a default background
// and the given extra style images.
func testTemplate(t *testing.T, styles ...string) template.Template {
	t.Helper()
	cfg := &config.Config{
		Env:             "testing",
		TemplatesDir:    t.TempDir(),
		DownloadTimeout: time.Second,
	}
	dir := filepath.Join(cfg.TemplatesDir, "iw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "default.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	var styleList string
	for _, s := range styles {
		if err := os.WriteFile(filepath.Join(dir, s+".png"), buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
		styleList += fmt.Sprintf("  - %s\n", s)
	}
	cfgBody := "name: Insanity Wolf\n"
	if styleList != "" {
		cfgBody += "styles:\n" + styleList
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(cfgBody), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := template.NewRepository(cfg, nil)
	tpl, err := repo.Get("iw")
	if err != nil {
		t.Fatal(err)
	}
	return tpl
}

func TestResolveDefault(t *testing.T) {
	tpl := testTemplate(t)
	r := NewResolver(&fakeRepo{})

	for _, token := range []string{"", "default", "Default", "  "} {
		res := r.Resolve(context.Background(), tpl, token)
		if res.Kind != KindDefault || res.Status != StatusOK {
			t.Errorf("Resolve(%q) = kind %v status %v", token, res.Kind, res.Status)
		}
		if res.Background == "" {
			t.Errorf("Resolve(%q) has no background", token)
		}
	}
}

func TestResolveNamedStyle(t *testing.T) {
	tpl := testTemplate(t, "maga")
	r := NewResolver(&fakeRepo{})

	res := r.Resolve(context.Background(), tpl, "MAGA")
	if res.Kind != KindNamed || res.Status != StatusOK {
		t.Fatalf("kind %v status %v", res.Kind, res.Status)
	}
	if filepath.Base(res.Background) != "maga.png" {
		t.Errorf("background = %s", res.Background)
	}
}

func TestResolveStackDropsUnknowns(t *testing.T) {
	tpl := testTemplate(t, "maga", "bernie")
	r := NewResolver(&fakeRepo{})

	res := r.Resolve(context.Background(), tpl, "maga,foobar,bernie")
	if res.Kind != KindStack || res.Status != StatusOK {
		t.Fatalf("kind %v status %v", res.Kind, res.Status)
	}
	if filepath.Base(res.Background) != "maga.png" {
		t.Errorf("background = %s", res.Background)
	}
	if len(res.OverlaySet) != 1 || filepath.Base(res.OverlaySet[0]) != "bernie.png" {
		t.Errorf("overlays = %v", res.OverlaySet)
	}
}

func TestResolveStackAllUnknownFallsBack(t *testing.T) {
	tpl := testTemplate(t)
	r := NewResolver(&fakeRepo{})

	res := r.Resolve(context.Background(), tpl, "foo,bar")
	if res.Kind != KindDefault || res.Status != StatusOK {
		t.Errorf("empty stack should fall back to default, got kind %v status %v", res.Kind, res.Status)
	}
}

func TestResolveAnimated(t *testing.T) {
	static := testTemplate(t)
	r := NewResolver(&fakeRepo{})

	res := r.Resolve(context.Background(), static, "animated")
	if res.Status != StatusUnsupported || res.Animated {
		t.Errorf("animated on a static template = kind %v status %v", res.Kind, res.Status)
	}

	timed := static
	timed.Boxes = []template.TextBox{{Start: 0, Stop: 0.5}, {Start: 0.5, Stop: 1}}
	res = r.Resolve(context.Background(), timed, "animated")
	if res.Kind != KindAnimated || res.Status != StatusOK || !res.Animated {
		t.Errorf("animated on a timed template = kind %v status %v animated %v", res.Kind, res.Status, res.Animated)
	}
}

func TestResolveExternalURL(t *testing.T) {
	tpl := testTemplate(t)

	tests := []struct {
		name       string
		fetchErr   error
		wantStatus Status
	}{
		{"fetch succeeds", nil, StatusOK},
		{"unreachable source", fmt.Errorf("wrap: %w", template.ErrUnreachable), StatusUnfetchable},
		{"unusable bytes", fmt.Errorf("wrap: %w", template.ErrUnusable), StatusUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{err: tt.fetchErr}
			r := NewResolver(repo)

			res := r.Resolve(context.Background(), tpl, "https://example.com/cat.png")
			if res.Kind != KindExternal {
				t.Errorf("kind = %v, want KindExternal", res.Kind)
			}
			if res.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v", res.Status, tt.wantStatus)
			}
			if repo.calls != 1 {
				t.Errorf("FetchStyle calls = %d, want 1", repo.calls)
			}
			if tt.fetchErr != nil && res.Background == "" {
				t.Error("failure should substitute the default background")
			}
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	tpl := testTemplate(t)
	r := NewResolver(&fakeRepo{})

	res := r.Resolve(context.Background(), tpl, "foobar")
	if res.Kind != KindUnsupported || res.Status != StatusUnsupported {
		t.Fatalf("kind %v status %v", res.Kind, res.Status)
	}
	if res.Background == "" {
		t.Error("unsupported style should still carry the default background for a diagnostic render")
	}
}

func TestResolveIsPureForNonURLTokens(t *testing.T) {
	tpl := testTemplate(t, "maga")
	repo := &fakeRepo{}
	r := NewResolver(repo)

	for _, token := range []string{"", "default", "maga", "maga,foo", "animated", "foobar"} {
		r.Resolve(context.Background(), tpl, token)
	}
	if repo.calls != 0 {
		t.Errorf("non-URL tokens must not reach the repository, got %d calls", repo.calls)
	}
}
