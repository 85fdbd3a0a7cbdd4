package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// AuthorHandler serves /api/auteurs
type AuthorHandler struct {
	authors domain.AuthorRepository
	logger  *slog.Logger
}

// NewAuthorHandler creates a new author handler
func NewAuthorHandler(authors domain.AuthorRepository, logger *slog.Logger) *AuthorHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthorHandler{authors: authors, logger: logger}
}

type authorRequest struct {
	Nom           string  `json:"nom"`
	Prenom        string  `json:"prenom"`
	Biographie    *string `json:"biographie"`
	DateNaissance *string `json:"dateNaissance"`
}

type authorResponse struct {
	ID            int64   `json:"id"`
	Nom           string  `json:"nom"`
	Prenom        string  `json:"prenom"`
	Biographie    *string `json:"biographie"`
	DateNaissance *string `json:"dateNaissance"`
}

func serializeAuthor(a *domain.Author) authorResponse {
	resp := authorResponse{
		ID:         a.ID,
		Nom:        a.LastName,
		Prenom:     a.FirstName,
		Biographie: a.Biography,
	}
	if a.BirthDate != nil {
		formatted := a.BirthDate.Format(dateFormat)
		resp.DateNaissance = &formatted
	}
	return resp
}

// List handles GET /api/auteurs
func (h *AuthorHandler) List(w http.ResponseWriter, r *http.Request) {
	authors, err := h.authors.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]authorResponse, 0, len(authors))
	for _, a := range authors {
		data = append(data, serializeAuthor(a))
	}
	writeJSON(w, http.StatusOK, data)
}

// Show handles GET /api/auteurs/{id}
func (h *AuthorHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Auteur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	author, err := h.authors.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, serializeAuthor(author))
}

// Create handles POST /api/auteurs
func (h *AuthorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Nom == "" {
		writeError(w, h.logger, domain.Invalid("Le champ 'nom' est requis"))
		return
	}
	if req.Prenom == "" {
		writeError(w, h.logger, domain.Invalid("Le champ 'prenom' est requis"))
		return
	}

	author := &domain.Author{
		LastName:  req.Nom,
		FirstName: req.Prenom,
		Biography: req.Biographie,
	}
	if req.DateNaissance != nil {
		birthDate, err := time.Parse(dateFormat, *req.DateNaissance)
		if err != nil {
			writeError(w, h.logger, domain.Invalid("Format de date invalide. Utilisez le format YYYY-MM-DD"))
			return
		}
		author.BirthDate = &birthDate
	}

	if err := h.authors.Create(r.Context(), author); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("author created", slog.Int64("id", author.ID))
	writeJSON(w, http.StatusCreated, serializeAuthor(author))
}

// Update handles PUT /api/auteurs/{id} with partial bodies
func (h *AuthorHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Auteur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	author, err := h.authors.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	var req struct {
		Nom           *string `json:"nom"`
		Prenom        *string `json:"prenom"`
		Biographie    *string `json:"biographie"`
		DateNaissance *string `json:"dateNaissance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Nom != nil {
		author.LastName = *req.Nom
	}
	if req.Prenom != nil {
		author.FirstName = *req.Prenom
	}
	if req.Biographie != nil {
		author.Biography = req.Biographie
	}
	if req.DateNaissance != nil {
		birthDate, err := time.Parse(dateFormat, *req.DateNaissance)
		if err != nil {
			writeError(w, h.logger, domain.Invalid("Format de date invalide"))
			return
		}
		author.BirthDate = &birthDate
	}

	if err := h.authors.Update(r.Context(), author); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("author updated", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, serializeAuthor(author))
}

// Delete handles DELETE /api/auteurs/{id}
func (h *AuthorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Auteur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.authors.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("author deleted", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Auteur supprimé avec succès"})
}
