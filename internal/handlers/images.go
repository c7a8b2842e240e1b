// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the HTTP surface: the image endpoint that
// drives the whole pipeline, and the JSON template catalog. Every image
// response carries image bytes, whatever the status code — clients embed
// these URLs directly in <img> tags, so errors must be visible, not blank.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"memeforge/internal/config"
	"memeforge/internal/normalize"
	"memeforge/internal/render"
	"memeforge/internal/style"
	"memeforge/internal/template"
)

// maxDimension caps requested output sizes; renders are CPU-bound and
// quadratic in the edge length.
const maxDimension = 2048

// CustomTemplateID is the pseudo-template whose background comes from the
// "background" query parameter instead of a template directory.
const CustomTemplateID = "custom"

// Images serves the image rendering endpoint.
type Images struct {
	cfg        *config.Config
	repo       *template.Repository
	styles     *style.Resolver
	normalizer *normalize.Normalizer
	engine     *render.Engine
}

// NewImages creates the image handler group.
func NewImages(cfg *config.Config, repo *template.Repository, styles *style.Resolver, normalizer *normalize.Normalizer, engine *render.Engine) *Images {
	return &Images{cfg: cfg, repo: repo, styles: styles, normalizer: normalizer, engine: engine}
}

// Serve handles GET /images/{template}/{slug...}.{ext}. The slug may span
// multiple path segments, one per caption line, so the route is a wildcard
// parsed here rather than with named parameters.
func (h *Images) Serve(w http.ResponseWriter, r *http.Request) {
	id, slugPath, ext := splitImagePath(strings.TrimPrefix(r.URL.Path, "/images/"))
	if id == "" {
		http.NotFound(w, r)
		return
	}

	d := h.normalizer.Normalize(normalize.Input{
		TemplateID: id,
		Slug:       slugPath,
		Extension:  ext,
		Query:      r.URL.Query(),
	})
	if d.Redirect != "" {
		code := http.StatusFound
		if d.Permanent {
			code = http.StatusMovedPermanently
		}
		http.Redirect(w, r, d.Redirect, code)
		return
	}

	tpl, res := h.resolve(r, id, d.Style)

	q := r.URL.Query()
	width, widthOK := parseDimension(q, "width")
	height, heightOK := parseDimension(q, "height")
	frames, framesOK := parseDimension(q, "frames")

	data, status, err := h.engine.Render(render.Request{
		Template:   tpl,
		Resolution: res,
		Lines:      d.Lines,
		FontID:     d.Font,
		Watermark:  d.Watermark,
		Width:      width,
		Height:     height,
		Extension:  d.Extension,
		MaxFrames:  frames,
	})
	if err != nil {
		slog.Error("render failed", "template", id, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if status == style.StatusOK && !(widthOK && heightOK && framesOK) {
		status = style.StatusInvalidSize
	}

	w.Header().Set("Content-Type", contentType(d.Extension))
	if status == style.StatusOK {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(httpStatus(status))
	w.Write(data)
}

// resolve produces the template snapshot and the style resolution,
// substituting the placeholder template when the lookup fails so an error
// image still renders.
func (h *Images) resolve(r *http.Request, id, styleToken string) (template.Template, style.Resolution) {
	ctx := r.Context()

	if id == CustomTemplateID {
		source := r.URL.Query().Get("background")
		if source == "" {
			return h.placeholder(style.StatusNotFound)
		}
		tpl, err := h.repo.CreateFromURL(ctx, source, false)
		if err != nil {
			status := style.StatusUnsupported
			if errors.Is(err, template.ErrUnreachable) {
				status = style.StatusUnfetchable
			}
			slog.Warn("custom background failed", "source", source, "error", err)
			if !tpl.Valid {
				return h.placeholder(status)
			}
			res := backgroundResolution(tpl)
			res.Status = status
			return tpl, res
		}
		return tpl, backgroundResolution(tpl)
	}

	tpl, err := h.repo.Get(id)
	if err != nil {
		return h.placeholder(style.StatusNotFound)
	}
	return tpl, h.styles.Resolve(ctx, tpl, styleToken)
}

func (h *Images) placeholder(status style.Status) (template.Template, style.Resolution) {
	tpl := h.repo.Placeholder()
	res := backgroundResolution(tpl)
	res.Status = status
	return tpl, res
}

// backgroundResolution is the trivial resolution for a template's default
// background, with an empty path when none exists so the renderer paints
// its procedural placeholder.
func backgroundResolution(tpl template.Template) style.Resolution {
	res := style.Resolution{Kind: style.KindDefault, Status: style.StatusOK}
	if bg, ok := tpl.BackgroundPath(template.DefaultStyle); ok {
		res.Background = bg
	}
	return res
}

// splitImagePath splits "{template}/{slug...}.{ext}" into its parts. The
// extension is taken from the last segment; a template requested without a
// slug may carry it directly.
func splitImagePath(p string) (id, slug, ext string) {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		id, slug = p[:i], p[i+1:]
	} else {
		id = p
	}

	target := &slug
	if slug == "" {
		target = &id
	}
	if e := path.Ext(*target); len(e) > 1 {
		*target = strings.TrimSuffix(*target, e)
		ext = e[1:]
	}
	return id, slug, ext
}

func parseDimension(q url.Values, key string) (int, bool) {
	v := q.Get(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxDimension {
		return 0, false
	}
	return n, true
}

// httpStatus maps a pipeline status to its HTTP code. Every code except
// 404-from-routing still accompanies image bytes.
func httpStatus(s style.Status) int {
	switch s {
	case style.StatusOK:
		return http.StatusOK
	case style.StatusNotFound:
		return http.StatusNotFound
	case style.StatusTooLong:
		return http.StatusRequestURITooLong
	case style.StatusUnfetchable:
		return http.StatusUnsupportedMediaType
	case style.StatusUnsupported, style.StatusInvalidSize:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func contentType(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
