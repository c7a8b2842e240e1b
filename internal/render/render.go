// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render composes the final meme raster: background fitting,
// per-box caption text with a stroked outline, overlay compositing, an
// optional corner watermark, and the animated GIF path. Rendering is
// deterministic: identical requests produce byte-identical output.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"

	"memeforge/internal/config"
	"memeforge/internal/fonts"
	"memeforge/internal/style"
	"memeforge/internal/template"
)

const (
	// Font size search bounds, in points.
	minFontSize = 7

	// lineSpacing matches the multiline measurement formula below.
	lineSpacing = 1.25

	// minWatermarkWidth suppresses watermarking on images too small to
	// carry it legibly.
	minWatermarkWidth = 300

	// jpegQuality for .jpg output.
	jpegQuality = 95
)

// Request carries everything the engine needs for one render.
type Request struct {
	Template   template.Template
	Resolution style.Resolution
	Lines      []string
	FontID     string
	Watermark  string
	Width      int
	Height     int
	Extension  string // "png", "jpg", "jpeg", "gif"
	MaxFrames  int
}

// Engine composes meme images. It is stateless and safe for concurrent use.
type Engine struct {
	cfg   *config.Config
	fonts *fonts.Catalog
}

// NewEngine creates an Engine.
func NewEngine(cfg *config.Config, catalog *fonts.Catalog) *Engine {
	return &Engine{cfg: cfg, fonts: catalog}
}

// Render produces the raster for the request. Recoverable conditions
// (missing background, over-long captions) degrade the status but still
// yield image bytes; only encoding failures return an error.
func (e *Engine) Render(req Request) ([]byte, style.Status, error) {
	status := req.Resolution.Status

	width, height := e.clampSize(req.Width, req.Height)

	lines := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		truncated, tooLong := truncateLine(line)
		lines[i] = truncated
		if tooLong && status == style.StatusOK {
			status = style.StatusTooLong
		}
	}

	font, ok := e.fonts.Resolve(req.FontID)
	if !ok {
		font = e.fonts.Default()
	}

	if req.Resolution.Animated && extensionOf(req) == "gif" {
		data, err := e.renderGIF(req, lines, font, width, height)
		return data, status, err
	}

	frame := e.renderFrame(req, lines, font, width, height, -1, 0)

	var buf bytes.Buffer
	var err error
	switch extensionOf(req) {
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, frame, nil)
	default:
		err = png.Encode(&buf, frame)
	}
	if err != nil {
		return nil, status, fmt.Errorf("render: encode %s: %w", extensionOf(req), err)
	}
	return buf.Bytes(), status, nil
}

// renderFrame draws one complete frame. frameIndex < 0 renders the static
// path, where every box is visible; otherwise box time windows apply
// against frameCount.
func (e *Engine) renderFrame(req Request, lines []string, font *fonts.Font, width, height, frameIndex, frameCount int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	bg := e.openBackground(req.Resolution.Background, frameIndex, frameCount)
	if bg == nil {
		e.drawPlaceholderBackground(dc, width, height)
	} else {
		drawFitted(dc, bg, width, height)
	}

	// Stacked style overlays stretch across the full canvas.
	for _, p := range req.Resolution.OverlaySet {
		if overlay := decodeFile(p); overlay != nil {
			drawFitted(dc, overlay, width, height)
		}
	}

	// Template-declared overlays composite at fractional center/scale of
	// the shorter dimension.
	for _, ov := range req.Template.Overlays {
		e.drawOverlay(dc, req.Template, ov, width, height)
	}

	at := -1.0
	if frameIndex >= 0 && frameCount > 0 {
		at = float64(frameIndex) / float64(frameCount)
	}
	for i, box := range req.Template.Boxes {
		if i >= len(lines) {
			break
		}
		if at >= 0 && !box.VisibleAt(at) {
			continue
		}
		e.drawCaption(dc, box, lines[i], font, width, height)
	}

	e.drawWatermark(dc, req.Watermark, font, width, height)
	return dc.Image()
}

// openBackground decodes the background path. For the animated path over a
// GIF source it returns the frame for frameIndex; a static source repeats.
// A missing or corrupt background returns nil and the caller substitutes
// the placeholder.
func (e *Engine) openBackground(path string, frameIndex, frameCount int) image.Image {
	if path == "" {
		return nil
	}
	if frameIndex >= 0 && strings.EqualFold(filepath.Ext(path), ".gif") {
		if frames := decodeGIF(path); frames != nil {
			return frames[frameIndex%len(frames)]
		}
	}
	return decodeFile(path)
}

func decodeFile(path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil
	}
	return img
}

// decodeGIF returns the coalesced frames of a GIF file, or nil.
func decodeGIF(path string) []image.Image {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil || len(g.Image) == 0 {
		return nil
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), namedColors["black"])
	frames := make([]image.Image, 0, len(g.Image))
	for _, frame := range g.Image {
		canvas = imaging.Overlay(canvas, frame, frame.Bounds().Min, 1.0)
		frames = append(frames, imaging.Clone(canvas))
	}
	return frames
}

// drawFitted scales src to fit the target box preserving aspect ratio and
// centers it; the black canvas underneath pads where the aspect differs.
func drawFitted(dc *gg.Context, src image.Image, width, height int) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return
	}
	scale := minFloat(float64(width)/float64(sw), float64(height)/float64(sh))
	nw := maxInt(1, int(float64(sw)*scale))
	nh := maxInt(1, int(float64(sh)*scale))

	resized := imaging.Resize(src, nw, nh, imaging.Lanczos)
	dc.DrawImage(resized, (width-nw)/2, (height-nh)/2)
}

func (e *Engine) drawOverlay(dc *gg.Context, tpl template.Template, ov template.Overlay, width, height int) {
	src := ov.Source
	if src == "" {
		src = "overlay"
	}
	path, ok := tpl.BackgroundPath(src)
	if !ok {
		return
	}
	img := decodeFile(path)
	if img == nil {
		return
	}

	shorter := minInt(width, height)
	target := maxInt(1, int(ov.Scale*float64(shorter)))
	sw, sh := img.Bounds().Dx(), img.Bounds().Dy()
	scale := float64(target) / float64(maxInt(sw, sh))
	resized := imaging.Resize(img, maxInt(1, int(float64(sw)*scale)), maxInt(1, int(float64(sh)*scale)), imaging.Lanczos)

	dc.DrawImageAnchored(resized, int(ov.CenterX*float64(width)), int(ov.CenterY*float64(height)), 0.5, 0.5)
}

// drawCaption draws one caption line into its box: case transform, shrink-
// to-fit font sizing, stroke outline, rotation, and alignment.
func (e *Engine) drawCaption(dc *gg.Context, box template.TextBox, line string, font *fonts.Font, width, height int) {
	text := strings.TrimSpace(applyTransform(box.Transform, line))
	if text == "" {
		return
	}

	maxW := box.ScaleX * float64(width)
	maxH := box.ScaleY * float64(height)
	size := fitFontSize(dc, font, text, maxW, maxH)

	face := font.Face(float64(size))
	dc.SetFontFace(face)
	wrapped := wrapLines(dc, text, maxW)
	fontHeight := dc.FontHeight()

	// Same block-height formula as the multiline measurement.
	blockH := float64(len(wrapped))*fontHeight*lineSpacing - (lineSpacing-1)*fontHeight

	cx := (box.AnchorX + box.ScaleX/2) * float64(width)
	cy := (box.AnchorY + box.ScaleY/2) * float64(height)

	var x, ax float64
	switch box.Align {
	case "left":
		x, ax = box.AnchorX*float64(width), 0
	case "right":
		x, ax = (box.AnchorX+box.ScaleX)*float64(width), 1
	default:
		x, ax = cx, 0.5
	}

	if box.Angle != 0 {
		dc.Push()
		dc.RotateAbout(gg.Radians(-box.Angle), cx, cy)
		defer dc.Pop()
	}

	fill := parseColor(box.Color)
	stroke := strokeFor(fill)
	n := maxInt(2, size/12) // visible outline size

	y := cy - 0.5*blockH + fontHeight*0.8
	for _, l := range wrapped {
		dc.SetColor(stroke)
		for dy := -n; dy <= n; dy++ {
			for dx := -n; dx <= n; dx++ {
				if dx*dx+dy*dy >= n*n {
					// rounded corners
					continue
				}
				dc.DrawStringAnchored(l, x+float64(dx), y+float64(dy), ax, 1)
			}
		}
		dc.SetColor(fill)
		dc.DrawStringAnchored(l, x, y, ax, 1)
		y += fontHeight * lineSpacing
	}
}

// fitFontSize binary-searches the largest point size whose wrapped text
// fits the box, stopping at the floor rather than searching indefinitely.
// The predicate is pure, so identical inputs always converge on the same
// size.
func fitFontSize(dc *gg.Context, font *fonts.Font, text string, maxW, maxH float64) int {
	fits := func(size int) bool {
		face := font.Face(float64(size))
		dc.SetFontFace(face)
		lines := wrapLines(dc, text, maxW)
		w := 0.0
		for _, l := range lines {
			lw, _ := dc.MeasureString(l)
			if lw > w {
				w = lw
			}
		}
		fontHeight := dc.FontHeight()
		h := float64(len(lines))*fontHeight*lineSpacing - (lineSpacing-1)*fontHeight
		return w <= maxW && h <= maxH
	}

	lo, hi := minFontSize, maxInt(minFontSize, int(maxH))
	if !fits(lo) {
		return lo
	}
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// wrapLines word-wraps text to the box width, honoring explicit newlines
// inside a single caption line.
func wrapLines(dc *gg.Context, text string, maxW float64) []string {
	var out []string
	for _, part := range strings.Split(text, "\n") {
		wrapped := dc.WordWrap(part, maxW)
		if len(wrapped) == 0 {
			wrapped = []string{""}
		}
		out = append(out, wrapped...)
	}
	return out
}

// drawWatermark renders the attribution string at low opacity near the
// bottom-left corner, suppressed entirely on small output.
func (e *Engine) drawWatermark(dc *gg.Context, text string, font *fonts.Font, width, height int) {
	if text == "" || width < minWatermarkWidth {
		return
	}
	size := maxFloat(10, float64(height)*0.025)
	dc.SetFontFace(font.Face(size))
	dc.SetRGBA255(0, 0, 0, 120)
	dc.DrawStringAnchored(text, 7, float64(height)-5, 0, 1)
	dc.SetRGBA255(255, 255, 255, 120)
	dc.DrawStringAnchored(text, 6, float64(height)-6, 0, 1)
}

// drawPlaceholderBackground paints the procedural error background used
// when the template's image cannot be opened, so the response is still a
// legible image.
func (e *Engine) drawPlaceholderBackground(dc *gg.Context, width, height int) {
	dc.SetRGB255(34, 34, 34)
	dc.Clear()
	dc.SetRGB255(52, 52, 52)
	step := float64(maxInt(24, width/12))
	for x := -float64(height); x < float64(width); x += step {
		dc.DrawLine(x, float64(height), x+float64(height), 0)
		dc.SetLineWidth(step / 3)
		dc.Stroke()
	}
}

// clampSize applies defaults and floors so numeric edge cases clamp
// instead of failing.
func (e *Engine) clampSize(width, height int) (int, int) {
	if width <= 0 && height <= 0 {
		width, height = e.cfg.DefaultWidth, e.cfg.DefaultHeight
	}
	if width <= 0 {
		width = height
	}
	if height <= 0 {
		height = width
	}
	return maxInt(width, 1), maxInt(height, 1)
}

func extensionOf(req Request) string {
	ext := strings.ToLower(strings.TrimPrefix(req.Extension, "."))
	switch ext {
	case "jpg", "jpeg", "gif", "png":
		return ext
	default:
		return "png"
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
