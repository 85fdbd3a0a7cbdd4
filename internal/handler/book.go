package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// BookHandler serves /api/livres
type BookHandler struct {
	books      domain.BookRepository
	authors    domain.AuthorRepository
	categories domain.CategoryRepository
	logger     *slog.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(
	books domain.BookRepository,
	authors domain.AuthorRepository,
	categories domain.CategoryRepository,
	logger *slog.Logger,
) *BookHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookHandler{
		books:      books,
		authors:    authors,
		categories: categories,
		logger:     logger,
	}
}

type bookAuthorResponse struct {
	ID     int64  `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
}

type bookCategoryResponse struct {
	ID  int64  `json:"id"`
	Nom string `json:"nom"`
}

type bookResponse struct {
	ID              int64                `json:"id"`
	Titre           string               `json:"titre"`
	DatePublication string               `json:"datePublication"`
	Disponible      bool                 `json:"disponible"`
	Auteur          bookAuthorResponse   `json:"auteur"`
	Categorie       bookCategoryResponse `json:"categorie"`
}

func serializeBook(b *domain.Book, author *domain.Author, category *domain.Category) bookResponse {
	return bookResponse{
		ID:              b.ID,
		Titre:           b.Title,
		DatePublication: b.PublishedAt.Format(dateFormat),
		Disponible:      b.Available,
		Auteur: bookAuthorResponse{
			ID:     author.ID,
			Nom:    author.LastName,
			Prenom: author.FirstName,
		},
		Categorie: bookCategoryResponse{
			ID:  category.ID,
			Nom: category.Name,
		},
	}
}

// List handles GET /api/livres
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.books.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	authors, err := h.authors.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	categories, err := h.categories.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	authorByID := make(map[int64]*domain.Author, len(authors))
	for _, a := range authors {
		authorByID[a.ID] = a
	}
	categoryByID := make(map[int64]*domain.Category, len(categories))
	for _, c := range categories {
		categoryByID[c.ID] = c
	}

	data := make([]bookResponse, 0, len(books))
	for _, b := range books {
		author, okA := authorByID[b.AuthorID]
		category, okC := categoryByID[b.CategoryID]
		if !okA || !okC {
			// FK constraints make this unreachable; skip rather than 500.
			h.logger.Error("book references missing entities", slog.Int64("id", b.ID))
			continue
		}
		data = append(data, serializeBook(b, author, category))
	}
	writeJSON(w, http.StatusOK, data)
}

// Show handles GET /api/livres/{id}
func (h *BookHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Livre non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	book, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	author, category, err := h.resolveRefs(r, book.AuthorID, book.CategoryID)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, serializeBook(book, author, category))
}

// Create handles POST /api/livres
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Titre           string `json:"titre"`
		DatePublication string `json:"datePublication"`
		AuteurID        int64  `json:"auteurId"`
		CategorieID     int64  `json:"categorieId"`
		Disponible      *bool  `json:"disponible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	switch {
	case req.Titre == "":
		writeError(w, h.logger, domain.Invalid("Le champ 'titre' est requis"))
		return
	case req.DatePublication == "":
		writeError(w, h.logger, domain.Invalid("Le champ 'datePublication' est requis"))
		return
	case req.AuteurID == 0:
		writeError(w, h.logger, domain.Invalid("Le champ 'auteurId' est requis"))
		return
	case req.CategorieID == 0:
		writeError(w, h.logger, domain.Invalid("Le champ 'categorieId' est requis"))
		return
	}

	author, category, err := h.resolveRefs(r, req.AuteurID, req.CategorieID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	publishedAt, err := time.Parse(dateFormat, req.DatePublication)
	if err != nil {
		writeError(w, h.logger, domain.Invalid("Format de date invalide. Utilisez le format YYYY-MM-DD"))
		return
	}

	book := &domain.Book{
		Title:       req.Titre,
		PublishedAt: publishedAt,
		Available:   true,
		AuthorID:    req.AuteurID,
		CategoryID:  req.CategorieID,
	}
	if req.Disponible != nil {
		book.Available = *req.Disponible
	}

	if err := h.books.Create(r.Context(), book); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("book created", slog.Int64("id", book.ID))
	writeJSON(w, http.StatusCreated, serializeBook(book, author, category))
}

// Update handles PUT /api/livres/{id} with partial bodies
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Livre non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	book, err := h.books.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	var req struct {
		Titre           *string `json:"titre"`
		DatePublication *string `json:"datePublication"`
		AuteurID        *int64  `json:"auteurId"`
		CategorieID     *int64  `json:"categorieId"`
		Disponible      *bool   `json:"disponible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Titre != nil {
		book.Title = *req.Titre
	}
	if req.DatePublication != nil {
		publishedAt, err := time.Parse(dateFormat, *req.DatePublication)
		if err != nil {
			writeError(w, h.logger, domain.Invalid("Format de date invalide"))
			return
		}
		book.PublishedAt = publishedAt
	}
	if req.AuteurID != nil {
		if _, err := h.authors.GetByID(r.Context(), *req.AuteurID); err != nil {
			writeError(w, h.logger, err, slog.Int64("id", id))
			return
		}
		book.AuthorID = *req.AuteurID
	}
	if req.CategorieID != nil {
		if _, err := h.categories.GetByID(r.Context(), *req.CategorieID); err != nil {
			writeError(w, h.logger, err, slog.Int64("id", id))
			return
		}
		book.CategoryID = *req.CategorieID
	}
	if req.Disponible != nil {
		book.Available = *req.Disponible
	}

	if err := h.books.Update(r.Context(), book); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	author, category, err := h.resolveRefs(r, book.AuthorID, book.CategoryID)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("book updated", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, serializeBook(book, author, category))
}

// Delete handles DELETE /api/livres/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Livre non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.books.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("book deleted", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Livre supprimé avec succès"})
}

func (h *BookHandler) resolveRefs(r *http.Request, authorID, categoryID int64) (*domain.Author, *domain.Category, error) {
	author, err := h.authors.GetByID(r.Context(), authorID)
	if err != nil {
		return nil, nil, err
	}
	category, err := h.categories.GetByID(r.Context(), categoryID)
	if err != nil {
		return nil, nil, err
	}
	return author, category, nil
}
