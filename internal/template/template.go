// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package template defines meme templates and the directory-backed
// repository that loads, caches, and downloads them. Templates are
// immutable value snapshots; all geometry is fractional (0.0–1.0) and is
// resolved to pixels by the renderer for each requested output size.
package template

import (
	"os"
	"path/filepath"
	"strings"
)

// ReservedPrefix marks internal template ids ("_error" and friends) that
// the public lookup path refuses to serve directly.
const ReservedPrefix = "_"

// ErrorTemplateID is the placeholder rendered when a template, background,
// or style cannot be resolved.
const ErrorTemplateID = "_error"

// CustomPrefix namespaces synthetic templates created from external URLs.
const CustomPrefix = "custom-"

// DefaultStyle is the style token selecting a template's default background.
const DefaultStyle = "default"

// AnimatedStyle selects the multi-frame rendering path.
const AnimatedStyle = "animated"

// MissingSuffix is the reserved placeholder suffix for a background whose
// download was attempted and failed; its presence suppresses re-downloads.
const MissingSuffix = ".missing"

// imageExts lists recognized background file extensions in lookup order.
// ".img" is the fallback suffix for downloads whose URL carries no usable
// extension; the decoder sniffs the real format from the bytes.
var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".img"}

// Transform is a per-box text case transform applied after slug decoding.
type Transform string

const (
	TransformNone     Transform = "none"
	TransformUpper    Transform = "upper"
	TransformLower    Transform = "lower"
	TransformTitle    Transform = "title"
	TransformSentence Transform = "sentence"
	TransformMock     Transform = "mock" // aLtErNaTiNg case
)

// TextBox positions one caption line within the background's bounding box.
// All coordinates and sizes are fractions of the final image dimensions.
type TextBox struct {
	AnchorX   float64   `yaml:"anchor_x"`
	AnchorY   float64   `yaml:"anchor_y"`
	ScaleX    float64   `yaml:"scale_x"`
	ScaleY    float64   `yaml:"scale_y"`
	Transform Transform `yaml:"style"`
	Color     string    `yaml:"color"`
	Align     string    `yaml:"align"` // "left", "center", "right"
	Angle     float64   `yaml:"angle"` // degrees, counter-clockwise

	// Start and Stop bound the fraction of an animation during which the
	// line is visible. The zero window (0, 1) means always visible.
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
}

// Animated reports whether the box has a non-trivial time window.
func (b TextBox) Animated() bool {
	return b.Start > 0 || (b.Stop > 0 && b.Stop < 1)
}

// VisibleAt reports whether the box is visible at the given fraction of
// the animation (frame index / frame count).
func (b TextBox) VisibleAt(t float64) bool {
	stop := b.Stop
	if stop <= 0 {
		stop = 1
	}
	return t >= b.Start && t < stop
}

// Overlay composites a secondary image onto the background. Center is
// fractional; Scale is a fraction of the background's shorter dimension.
// Source names the image file in the template directory, without its
// extension; it defaults to "overlay".
type Overlay struct {
	Source  string  `yaml:"source,omitempty"`
	CenterX float64 `yaml:"center_x"`
	CenterY float64 `yaml:"center_y"`
	Scale   float64 `yaml:"scale"`
}

// Template is an immutable snapshot of one template directory.
type Template struct {
	ID       string    `yaml:"-"`
	Name     string    `yaml:"name"`
	Source   string    `yaml:"source,omitempty"`
	Boxes    []TextBox `yaml:"text"`
	Overlays []Overlay `yaml:"overlay,omitempty"`
	Styles   []string  `yaml:"styles,omitempty"`
	Example  []string  `yaml:"example,omitempty"`

	// Valid is derived at load time: the id is not reserved and a default
	// background resolves. Invalid templates still render, as the error
	// placeholder.
	Valid bool `yaml:"-"`

	dir string
}

// Dir returns the template's directory on disk.
func (t Template) Dir() string { return t.dir }

// BackgroundPath resolves the background image for a style name. It tries
// each known image extension in order and reports whether a file exists.
func (t Template) BackgroundPath(style string) (string, bool) {
	if t.dir == "" {
		return "", false
	}
	if style == "" {
		style = DefaultStyle
	}
	for _, ext := range imageExts {
		p := filepath.Join(t.dir, style+ext)
		if fileExists(p) {
			return p, true
		}
	}
	return "", false
}

// StyleAssetPath returns the cache path for a downloaded style asset,
// keyed by the style token's fingerprint plus the caller-chosen suffix.
func (t Template) StyleAssetPath(token, suffix string) string {
	return filepath.Join(t.dir, Fingerprint(token)+suffix)
}

// HasStyle reports whether name matches one of the template's declared
// styles, case-insensitively.
func (t Template) HasStyle(name string) bool {
	for _, s := range t.Styles {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Animatable reports whether the template can serve the "animated" style:
// at least one box has a time window, or the default background itself is
// an animated asset (GIF).
func (t Template) Animatable() bool {
	for _, b := range t.Boxes {
		if b.Animated() {
			return true
		}
	}
	if p, ok := t.BackgroundPath(DefaultStyle); ok && strings.EqualFold(filepath.Ext(p), ".gif") {
		return true
	}
	return false
}

// applyDefaults fills zero values after YAML decoding. A template with no
// text section gets the classic top/bottom two-box layout.
func (t *Template) applyDefaults() {
	if len(t.Boxes) == 0 {
		t.Boxes = []TextBox{
			{AnchorX: 0, AnchorY: 0, ScaleX: 1, ScaleY: 0.2},
			{AnchorX: 0, AnchorY: 0.8, ScaleX: 1, ScaleY: 0.2},
		}
	}
	for i := range t.Boxes {
		b := &t.Boxes[i]
		if b.ScaleX <= 0 {
			b.ScaleX = 1
		}
		if b.ScaleY <= 0 {
			b.ScaleY = 0.2
		}
		if b.Transform == "" {
			b.Transform = TransformUpper
		}
		if b.Color == "" {
			b.Color = "white"
		}
		if b.Align == "" {
			b.Align = "center"
		}
		if b.Stop <= 0 {
			b.Stop = 1
		}
	}
	for i := range t.Overlays {
		o := &t.Overlays[i]
		if o.Scale <= 0 {
			o.Scale = 0.25
		}
	}
	if t.Name == "" {
		t.Name = t.ID
	}
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir() && info.Size() > 0
}
