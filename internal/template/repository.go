// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package template

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"memeforge/internal/config"
	"memeforge/internal/storage"
)

// ErrNotFound is returned for unknown or reserved template ids.
var ErrNotFound = errors.New("template not found")

// configFile is the per-template metadata file name.
const configFile = "config.yml"

// Repository loads template snapshots from a directory tree and caches
// them in memory for the process lifetime. In development mode snapshots
// are reloaded on every lookup so edits show up without a restart.
type Repository struct {
	cfg    *config.Config
	cache  *gocache.Cache
	client *http.Client
	mirror *storage.Client // nil when S3 is not configured
}

// NewRepository creates a repository rooted at cfg.TemplatesDir. mirror
// may be nil.
func NewRepository(cfg *config.Config, mirror *storage.Client) *Repository {
	return &Repository{
		cfg:    cfg,
		cache:  gocache.New(gocache.NoExpiration, 0),
		client: newDownloadClient(cfg.DownloadTimeout),
		mirror: mirror,
	}
}

// Get returns the template snapshot for id. Reserved ids and missing
// directories yield ErrNotFound.
func (r *Repository) Get(id string) (Template, error) {
	id = strings.ToLower(id)
	if id == "" || strings.HasPrefix(id, ReservedPrefix) {
		return Template{}, ErrNotFound
	}
	return r.load(id)
}

// Placeholder returns the error template rendered when a lookup or
// download fails. It is synthesized if no "_error" directory exists, so
// the error path never depends on on-disk state.
func (r *Repository) Placeholder() Template {
	if tpl, err := r.load(ErrorTemplateID); err == nil {
		return tpl
	}
	tpl := Template{
		ID:   ErrorTemplateID,
		Name: "Error",
		dir:  filepath.Join(r.cfg.TemplatesDir, ErrorTemplateID),
	}
	tpl.applyDefaults()
	return tpl
}

// List returns all public template snapshots sorted by id.
func (r *Repository) List() []Template {
	entries, err := os.ReadDir(r.cfg.TemplatesDir)
	if err != nil {
		return nil
	}
	var out []Template
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ReservedPrefix) {
			continue
		}
		if strings.HasPrefix(entry.Name(), CustomPrefix) {
			continue // download cache, not a browsable template
		}
		if tpl, err := r.Get(entry.Name()); err == nil {
			out = append(out, tpl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetOrCreate returns the template for id, materializing a stub directory
// when it does not exist. Only the development workflow uses this; the
// production request path never creates template directories.
func (r *Repository) GetOrCreate(id string) (Template, error) {
	if !r.cfg.IsDev() {
		return r.Get(id)
	}
	tpl, err := r.Get(id)
	if err == nil {
		return tpl, nil
	}
	id = strings.ToLower(id)
	if id == "" || strings.HasPrefix(id, ReservedPrefix) {
		return Template{}, ErrNotFound
	}

	tpl = Template{ID: id, dir: filepath.Join(r.cfg.TemplatesDir, id)}
	tpl.applyDefaults()
	if err := r.Materialize(tpl); err != nil {
		return Template{}, err
	}
	return r.load(id)
}

// Materialize writes the snapshot's metadata back to its config.yml. This
// is the explicit counterpart of what the repository otherwise only reads;
// nothing on the rendering path calls it.
func (r *Repository) Materialize(tpl Template) error {
	if tpl.dir == "" {
		return fmt.Errorf("materialize %s: no directory", tpl.ID)
	}
	if err := os.MkdirAll(tpl.dir, 0o755); err != nil {
		return fmt.Errorf("materialize %s: %w", tpl.ID, err)
	}
	data, err := yaml.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("materialize %s: %w", tpl.ID, err)
	}
	if err := os.WriteFile(filepath.Join(tpl.dir, configFile), data, 0o644); err != nil {
		return fmt.Errorf("materialize %s: %w", tpl.ID, err)
	}
	r.cache.Delete(tpl.ID)
	return nil
}

// load reads a template directory, consulting the in-memory cache outside
// development mode.
func (r *Repository) load(id string) (Template, error) {
	if !r.cfg.IsDev() {
		if cached, ok := r.cache.Get(id); ok {
			return cached.(Template), nil
		}
	}

	dir := filepath.Join(r.cfg.TemplatesDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Template{}, ErrNotFound
	}

	tpl := Template{ID: id, dir: dir}
	if data, err := os.ReadFile(filepath.Join(dir, configFile)); err == nil {
		if err := yaml.Unmarshal(data, &tpl); err != nil {
			return Template{}, fmt.Errorf("template %s: parse %s: %w", id, configFile, err)
		}
	}
	tpl.ID = id
	tpl.dir = dir
	tpl.applyDefaults()

	_, hasBackground := tpl.BackgroundPath(DefaultStyle)
	tpl.Valid = hasBackground && !strings.HasPrefix(id, ReservedPrefix)

	r.cache.Set(id, tpl, gocache.NoExpiration)
	return tpl, nil
}
