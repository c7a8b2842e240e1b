// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package normalize decides, for each incoming image URL, whether to serve
// it as-is or redirect to its canonical form. The decision is a pure
// function of the parsed request and the configuration, so every rule is
// testable without a server. Slug corrections are permanent redirects;
// query-parameter cleanups are temporary ones.
package normalize

import (
	"net/url"
	"strings"

	"memeforge/internal/config"
	"memeforge/internal/fonts"
	"memeforge/internal/slug"
	"memeforge/internal/template"
)

// WatermarkNone is the query value that disables the watermark entirely.
const WatermarkNone = "none"

// Input is the parsed image request.
type Input struct {
	TemplateID string
	Slug       string // raw slug from the path, extension stripped
	Extension  string // "" means the handler's default
	Query      url.Values
}

// Decision is the normalization outcome. When Redirect is non-empty the
// handler must answer with it and render nothing; otherwise the remaining
// fields are the normalized render parameters.
type Decision struct {
	Redirect  string
	Permanent bool

	Lines     []string
	Style     string
	Font      string
	Watermark string // "" means render without a watermark
	Extension string
}

// Normalizer applies the canonical-URL rules.
type Normalizer struct {
	cfg   *config.Config
	fonts *fonts.Catalog
}

// New creates a Normalizer.
func New(cfg *config.Config, catalog *fonts.Catalog) *Normalizer {
	return &Normalizer{cfg: cfg, fonts: catalog}
}

// Normalize evaluates the rules in order. A non-canonical slug or a
// rewritten extension forces a permanent redirect; dropped or redundant
// query parameters force a temporary one. All corrections are folded into
// a single Location so a client follows at most one redirect.
func (n *Normalizer) Normalize(in Input) Decision {
	d := Decision{Watermark: n.cfg.DefaultWatermark}

	canonical := slug.Canonical(in.Slug)
	permanent := canonical != in.Slug

	ext, extChanged := normalizeExtension(in.Extension)
	permanent = permanent || extChanged
	d.Extension = ext

	q := cloneQuery(in.Query)
	temporary := false

	if q.Has("watermark") {
		switch token := q.Get("watermark"); {
		case token == WatermarkNone:
			d.Watermark = ""
		case token == n.cfg.DefaultWatermark:
			// Redundant: the default never appears in a canonical URL.
			q.Del("watermark")
			temporary = true
		case n.cfg.WatermarkAllowed(token):
			d.Watermark = token
		default:
			q.Del("watermark")
			temporary = true
		}
	}

	if q.Has("style") {
		token := q.Get("style")
		if strings.EqualFold(token, template.DefaultStyle) {
			q.Del("style")
			temporary = true
		} else {
			d.Style = token
		}
	}

	if q.Has("font") {
		token := q.Get("font")
		if _, ok := n.fonts.Resolve(token); ok {
			d.Font = token
		} else {
			q.Del("font")
			temporary = true
		}
	}

	if permanent || temporary {
		d.Redirect = n.location(in.TemplateID, canonical, ext, in.Extension, q)
		d.Permanent = permanent
		return d
	}

	d.Lines = slug.Decode(canonical)
	return d
}

// location rebuilds the image path with the canonical slug and the cleaned
// query string. The extension is kept only if the request had one.
func (n *Normalizer) location(templateID, canonical, ext, requestedExt string, q url.Values) string {
	p := "/images/" + templateID
	if canonical != "" {
		p += "/" + canonical
	}
	if requestedExt != "" {
		p += "." + ext
	}
	u := url.URL{Path: p, RawQuery: q.Encode()}
	return u.String()
}

// normalizeExtension maps the requested extension to a supported output
// format. WebP is decode-only, so requests for it redirect to PNG.
func normalizeExtension(ext string) (string, bool) {
	switch strings.ToLower(ext) {
	case "", "png":
		return "png", false
	case "jpg", "jpeg", "gif":
		return strings.ToLower(ext), ext != strings.ToLower(ext)
	default:
		return "png", true
	}
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
