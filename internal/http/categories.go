package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tally/internal/core"
)

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

type categoryResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Color      string `json:"color,omitempty"`
	Icon       string `json:"icon,omitempty"`
	IsArchived bool   `json:"isArchived"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:         c.ID,
		Name:       c.Name,
		Type:       string(c.Type),
		Color:      c.Color,
		Icon:       c.Icon,
		IsArchived: c.IsArchived,
	}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Archived categories are hidden unless explicitly requested.
	includeArchived := r.URL.Query().Get("includeArchived") == "true"
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		if c.IsArchived && !includeArchived {
			continue
		}
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := core.Category{
		ID:    uuid.NewString(),
		Name:  sanitizeInput(req.Name),
		Type:  core.CategoryType(req.Type),
		Color: sanitizeInput(req.Color),
		Icon:  sanitizeInput(req.Icon),
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.CreateCategory(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toCategoryResponse(c))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	existing, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := core.Category{
		ID:         id,
		Name:       sanitizeInput(req.Name),
		Type:       core.CategoryType(req.Type),
		Color:      sanitizeInput(req.Color),
		Icon:       sanitizeInput(req.Icon),
		IsArchived: existing.IsArchived,
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.UpdateCategory(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// handleArchiveCategory soft-deletes: the category disappears from
// pickers but keeps resolving in historical reports.
func (s *Server) handleArchiveCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ArchiveCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}
