package http

import (
	"net/http"

	"fintrack/internal/core"
)

type categoryRequest struct {
	Name         string `json:"name"`
	CategoryType string `json:"category_type"`
}

type categoryResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CategoryType string `json:"category_type"`
	IsDefault    bool   `json:"is_default"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:           c.ID,
		Name:         c.Name,
		CategoryType: string(c.Kind),
		IsDefault:    c.IsDefault,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.categories.Create(r.Context(), requestUser(r), req.Name, req.CategoryType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.List(r.Context(), requestUser(r), r.URL.Query().Get("category_type"))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]categoryResponse, len(categories))
	for i, c := range categories {
		out[i] = toCategoryResponse(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := s.categories.Get(r.Context(), requestUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	renamed, err := s.categories.Rename(r.Context(), requestUser(r), id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(renamed))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.categories.Delete(r.Context(), requestUser(r), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
