// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package style resolves a requested style token against a template into a
// concrete rendering plan: which background to open, which overlay assets
// to stack, and whether the animated path applies. The resolver is a pure
// decision table over template state and the token; the only I/O it
// performs is delegated to the template repository when the token is an
// external URL.
package style

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"memeforge/internal/template"
)

// Status is the pipeline outcome the web layer maps to an HTTP code. Every
// status except StatusNotFound still produces image bytes.
type Status int

const (
	StatusOK Status = iota
	StatusNotFound
	StatusTooLong
	StatusUnfetchable
	StatusUnsupported
	StatusInvalidSize
)

// String names statuses in logs.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	case StatusTooLong:
		return "caption too long"
	case StatusUnfetchable:
		return "unfetchable image"
	case StatusUnsupported:
		return "unsupported style"
	case StatusInvalidSize:
		return "invalid size"
	default:
		return "unknown"
	}
}

// Kind tags how a style token resolved.
type Kind int

const (
	KindDefault Kind = iota
	KindNamed
	KindStack
	KindAnimated
	KindExternal
	KindUnsupported
)

// Resolution is the concrete rendering plan for one request.
type Resolution struct {
	Kind       Kind
	Background string   // path of the background image to open
	OverlaySet []string // extra overlay asset paths, composited in order
	Animated   bool
	Status     Status
}

// Repository is the slice of the template repository the resolver needs.
type Repository interface {
	FetchStyle(ctx context.Context, tpl template.Template, token, suffix string, force bool) error
}

// Resolver decides backgrounds and overlays for style tokens.
type Resolver struct {
	repo Repository
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve evaluates the style decision table in order:
//
//  1. empty or "default"      → template default background
//  2. a declared style name   → that style's background
//  3. a comma-separated list  → each element stacked; unknowns dropped
//  4. "animated"              → multi-frame path, if the template supports it
//  5. a syntactically valid URL → downloaded external background
//  6. anything else           → unsupported; default substituted so a
//     diagnostic image still renders
func (r *Resolver) Resolve(ctx context.Context, tpl template.Template, token string) Resolution {
	token = strings.TrimSpace(token)

	// Rule 1: default.
	if token == "" || strings.EqualFold(token, template.DefaultStyle) {
		return r.defaultResolution(tpl, KindDefault, StatusOK)
	}

	// Rule 2: a single declared style name.
	if tpl.HasStyle(token) {
		if bg, ok := tpl.BackgroundPath(strings.ToLower(token)); ok {
			return Resolution{Kind: KindNamed, Background: bg, Status: StatusOK}
		}
		// Declared but its image is missing on disk.
		return r.defaultResolution(tpl, KindUnsupported, StatusUnsupported)
	}

	// Rule 3: comma-separated stack.
	if strings.Contains(token, ",") {
		return r.resolveStack(tpl, token)
	}

	// Rule 4: animated keyword.
	if strings.EqualFold(token, template.AnimatedStyle) {
		if !tpl.Animatable() {
			return r.defaultResolution(tpl, KindUnsupported, StatusUnsupported)
		}
		res := r.defaultResolution(tpl, KindAnimated, StatusOK)
		res.Animated = true
		return res
	}

	// Rule 5: external URL.
	if isExternalURL(token) {
		return r.resolveExternal(ctx, tpl, token)
	}

	// Rule 6: unsupported.
	return r.defaultResolution(tpl, KindUnsupported, StatusUnsupported)
}

func (r *Resolver) defaultResolution(tpl template.Template, kind Kind, status Status) Resolution {
	bg, _ := tpl.BackgroundPath(template.DefaultStyle)
	return Resolution{Kind: kind, Background: bg, Status: status}
}

// resolveStack resolves each element of a comma list independently,
// dropping unknown and default elements. The first resolvable element
// becomes the background; the rest stack as overlays. An empty result
// falls back to rule 1.
func (r *Resolver) resolveStack(tpl template.Template, token string) Resolution {
	var paths []string
	for _, name := range strings.Split(token, ",") {
		name = strings.TrimSpace(name)
		if name == "" || strings.EqualFold(name, template.DefaultStyle) {
			continue
		}
		if !tpl.HasStyle(name) {
			continue
		}
		if p, ok := tpl.BackgroundPath(strings.ToLower(name)); ok {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return r.defaultResolution(tpl, KindDefault, StatusOK)
	}
	return Resolution{
		Kind:       KindStack,
		Background: paths[0],
		OverlaySet: paths[1:],
		Status:     StatusOK,
	}
}

// resolveExternal delegates the download to the repository and classifies
// failures: unreachable sources map to StatusUnfetchable, sources that
// arrive but do not decode map to StatusUnsupported. Either way the
// template default is substituted so rendering proceeds.
func (r *Resolver) resolveExternal(ctx context.Context, tpl template.Template, token string) Resolution {
	err := r.repo.FetchStyle(ctx, tpl, token, ".img", false)
	if err == nil {
		return Resolution{
			Kind:       KindExternal,
			Background: tpl.StyleAssetPath(token, ".img"),
			Status:     StatusOK,
		}
	}
	status := StatusUnsupported
	if errors.Is(err, template.ErrUnreachable) {
		status = StatusUnfetchable
	}
	return r.defaultResolution(tpl, KindExternal, status)
}

// isExternalURL reports whether the token parses as an absolute http(s) URL.
func isExternalURL(token string) bool {
	u, err := url.Parse(token)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
