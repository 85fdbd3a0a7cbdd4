package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// CategoryHandler serves /api/categories
type CategoryHandler struct {
	categories domain.CategoryRepository
	logger     *slog.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories domain.CategoryRepository, logger *slog.Logger) *CategoryHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &CategoryHandler{categories: categories, logger: logger}
}

type categoryResponse struct {
	ID          int64   `json:"id"`
	Nom         string  `json:"nom"`
	Description *string `json:"description"`
}

func serializeCategory(c *domain.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Nom:         c.Name,
		Description: c.Description,
	}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		data = append(data, serializeCategory(c))
	}
	writeJSON(w, http.StatusOK, data)
}

// Show handles GET /api/categories/{id}
func (h *CategoryHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Catégorie non trouvée")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, serializeCategory(category))
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nom         string  `json:"nom"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Nom == "" {
		writeError(w, h.logger, domain.Invalid("Le champ 'nom' est requis"))
		return
	}

	category := &domain.Category{
		Name:        req.Nom,
		Description: req.Description,
	}
	if err := h.categories.Create(r.Context(), category); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("category created", slog.Int64("id", category.ID))
	writeJSON(w, http.StatusCreated, serializeCategory(category))
}

// Update handles PUT /api/categories/{id} with partial bodies
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Catégorie non trouvée")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	category, err := h.categories.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	var req struct {
		Nom         *string `json:"nom"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Nom != nil {
		category.Name = *req.Nom
	}
	if req.Description != nil {
		category.Description = req.Description
	}

	if err := h.categories.Update(r.Context(), category); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("category updated", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, serializeCategory(category))
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Catégorie non trouvée")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("category deleted", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Catégorie supprimée avec succès"})
}
