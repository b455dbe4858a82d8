package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/scsonic/nexavatar/api/brand"
)

type BrandHandler struct {
	brands *brand.Registry
}

func NewBrandHandler(brands *brand.Registry) *BrandHandler {
	return &BrandHandler{brands: brands}
}

// List handles GET /api/brands.
func (h *BrandHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"brands":  h.brands.List(),
		"default": brand.DefaultID,
	}, http.StatusOK)
}

// Get handles GET /api/brands/{id}. Unknown ids resolve to the default
// brand so a stale widget keeps working.
func (h *BrandHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.brands.Get(chi.URLParam(r, "id")), http.StatusOK)
}
