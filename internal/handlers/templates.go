// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"memeforge/internal/config"
	"memeforge/internal/slug"
	"memeforge/internal/template"
)

// Templates serves the JSON template catalog.
type Templates struct {
	cfg  *config.Config
	repo *template.Repository
}

// NewTemplates creates the catalog handler group.
func NewTemplates(cfg *config.Config, repo *template.Repository) *Templates {
	return &Templates{cfg: cfg, repo: repo}
}

// templateJSON is the public shape of a template. Blank and Example are
// ready-to-use image URLs so clients never build slugs themselves.
type templateJSON struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Lines   int      `json:"lines"`
	Styles  []string `json:"styles,omitempty"`
	Blank   string   `json:"blank"`
	Example string   `json:"example,omitempty"`
	Source  string   `json:"source,omitempty"`
}

// List handles GET /templates.
func (h *Templates) List(w http.ResponseWriter, r *http.Request) {
	templates := h.repo.List()
	out := make([]templateJSON, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, h.toJSON(tpl))
	}
	writeJSON(w, http.StatusOK, out)
}

// Detail handles GET /templates/{id}.
func (h *Templates) Detail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tpl, err := h.repo.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "template not found"})
		return
	}
	writeJSON(w, http.StatusOK, h.toJSON(tpl))
}

func (h *Templates) toJSON(tpl template.Template) templateJSON {
	out := templateJSON{
		ID:     tpl.ID,
		Name:   tpl.Name,
		Lines:  len(tpl.Boxes),
		Styles: tpl.Styles,
		Blank:  h.cfg.BaseURL + "/images/" + tpl.ID + ".png",
		Source: tpl.Source,
	}
	if len(tpl.Example) > 0 {
		out.Example = h.cfg.BaseURL + "/images/" + tpl.ID + "/" + slug.Encode(tpl.Example) + ".png"
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response failed", "error", err)
	}
}
