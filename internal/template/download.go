// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package template

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// Download failure classes. Unreachable means the bytes never arrived;
// unusable means they arrived but do not decode as an image.
var (
	ErrUnreachable = errors.New("external image unreachable")
	ErrUnusable    = errors.New("external image unusable")
)

// redirectErrorHosts lists hosts that answer deleted images with a
// redirect to an error page. A 3xx from them is a failure, not a hop.
var redirectErrorHosts = map[string]bool{
	"i.imgur.com": true,
	"imgur.com":   true,
}

// maxDownloadBytes caps external image downloads.
const maxDownloadBytes = 10 << 20

// Fingerprint returns the deterministic cache key for a source URL or
// style token.
func Fingerprint(source string) string {
	sum := sha1.Sum([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}

func newDownloadClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > 0 && redirectErrorHosts[via[0].URL.Host] {
				return fmt.Errorf("%s signals an error page via redirect", via[0].URL.Host)
			}
			if len(via) >= 10 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// CreateFromURL resolves an external image URL to a template, downloading
// and caching it under a fingerprint-derived id. URLs pointing back at
// this service short-circuit to the referenced template, which also stops
// custom URLs that reference other custom URLs from recursing.
//
// All failures are non-fatal: the returned template is simply not Valid,
// and the error classifies the failure for status mapping.
func (r *Repository) CreateFromURL(ctx context.Context, rawURL string, force bool) (Template, error) {
	if id, ok := r.selfTemplateID(rawURL); ok {
		tpl, err := r.Get(id)
		if err != nil {
			return Template{}, fmt.Errorf("%w: %s", ErrUnreachable, rawURL)
		}
		return tpl, nil
	}

	id := CustomPrefix + Fingerprint(rawURL)
	dir := filepath.Join(r.cfg.TemplatesDir, id)
	tpl := Template{ID: id, Name: "Custom", Source: rawURL, dir: dir}
	tpl.applyDefaults()

	target := filepath.Join(dir, DefaultStyle+suffixFor(rawURL))
	err := r.fetchTo(ctx, rawURL, target, force)
	_, hasBackground := tpl.BackgroundPath(DefaultStyle)
	tpl.Valid = hasBackground
	return tpl, err
}

// CheckStyle downloads and caches a style asset for the template, keyed
// by the token's fingerprint plus the caller-chosen suffix, and reports
// whether the asset is usable.
func (r *Repository) CheckStyle(ctx context.Context, tpl Template, token, suffix string, force bool) bool {
	return r.FetchStyle(ctx, tpl, token, suffix, force) == nil
}

// FetchStyle is CheckStyle with the failure class preserved, so the style
// resolver can distinguish "could not fetch" from "fetched but unusable".
func (r *Repository) FetchStyle(ctx context.Context, tpl Template, token, suffix string, force bool) error {
	if tpl.dir == "" {
		return fmt.Errorf("%w: template has no directory", ErrUnreachable)
	}
	return r.fetchTo(ctx, token, tpl.StyleAssetPath(token, suffix), force)
}

// fetchTo downloads source into target unless a cached copy (or a known-
// missing marker) already satisfies the request. Concurrent fetches of the
// same fingerprint are tolerated: writes go through a temp file and rename,
// and identical sources produce identical bytes.
func (r *Repository) fetchTo(ctx context.Context, source, target string, force bool) error {
	revalidate := force || r.cfg.IsDev()
	missingMarker := strings.TrimSuffix(target, filepath.Ext(target)) + MissingSuffix

	if !revalidate {
		if fileExists(target) {
			return nil
		}
		if _, err := os.Stat(missingMarker); err == nil {
			return fmt.Errorf("%w: %s (cached failure)", ErrUnreachable, source)
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	data, err := r.fetchBytes(ctx, source)
	if err != nil {
		r.markMissing(missingMarker)
		return err
	}

	// Validate before publishing: the file must be a fully loadable raster.
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		r.markMissing(missingMarker)
		return fmt.Errorf("%w: %s: %v", ErrUnusable, source, err)
	}

	tmp := filepath.Join(filepath.Dir(target), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	os.Remove(missingMarker)

	if r.mirror != nil {
		key := mirrorKey(r.cfg.TemplatesDir, target)
		if err := r.mirror.Put(ctx, key, http.DetectContentType(data), data); err != nil {
			slog.Warn("asset mirror put failed", "key", key, "error", err)
		}
	}
	return nil
}

// fetchBytes tries the asset mirror first, then the network.
func (r *Repository) fetchBytes(ctx context.Context, source string) ([]byte, error) {
	if r.mirror != nil {
		key := "sources/" + Fingerprint(source)
		if data, ok, err := r.mirror.Get(ctx, key); err == nil && ok {
			return data, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, source, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s: http %d", ErrUnreachable, source, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreachable, source, err)
	}

	if r.mirror != nil {
		key := "sources/" + Fingerprint(source)
		if err := r.mirror.Put(ctx, key, http.DetectContentType(data), data); err != nil {
			slog.Warn("asset mirror put failed", "key", key, "error", err)
		}
	}
	return data, nil
}

// mirrorKey derives the bucket key for a published asset from its path
// relative to the templates root, normalized to forward slashes.
func mirrorKey(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		rel = filepath.Base(target)
	}
	return "assets/" + filepath.ToSlash(rel)
}

// markMissing drops the known-missing marker so failed sources are not
// retried on every request. Best effort.
func (r *Repository) markMissing(marker string) {
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(marker, nil, 0o644)
}

// selfTemplateID reports whether rawURL refers to this service's own
// image path, and if so extracts the template id from it.
func (r *Repository) selfTemplateID(rawURL string) (string, bool) {
	base, err := url.Parse(r.cfg.BaseURL)
	if err != nil {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || u.Host != base.Host {
		return "", false
	}
	rest, ok := strings.CutPrefix(u.Path, "/images/")
	if !ok {
		return "", false
	}
	id := rest
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		id = rest[:i]
	}
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", false
	}
	return id, true
}

// suffixFor infers the on-disk suffix from the URL path, defaulting to the
// generic ".img" when the URL does not carry a usable extension.
func suffixFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".img"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	for _, known := range imageExts {
		if ext == known {
			return ext
		}
	}
	return ".img"
}
