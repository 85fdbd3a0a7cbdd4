package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/yourorg/bibliotheque/internal/domain"
)

func TestCategoryCRUD(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPost, "/api/categories", `{"nom":"Poésie","description":"Vers et proses"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	var created categoryResponse
	decode(t, rr, &created)
	if created.ID == 0 || created.Nom != "Poésie" {
		t.Fatalf("unexpected body %+v", created)
	}

	rr = do(t, mux, http.MethodPut, fmt.Sprintf("/api/categories/%d", created.ID), `{"nom":"Poésie classique"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var updated categoryResponse
	decode(t, rr, &updated)
	if updated.Nom != "Poésie classique" {
		t.Fatalf("name not updated: %+v", updated)
	}
	if updated.Description == nil || *updated.Description != "Vers et proses" {
		t.Fatalf("untouched description changed: %+v", updated)
	}

	rr = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/categories/%d", created.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = do(t, mux, http.MethodGet, fmt.Sprintf("/api/categories/%d", created.ID), "")
	wantError(t, rr, http.StatusNotFound, "Catégorie non trouvée")
}

func TestCategoryCreateValidation(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPost, "/api/categories", `{"description":"sans nom"}`)
	wantError(t, rr, http.StatusBadRequest, "Le champ 'nom' est requis")
}

func TestCategoryDeleteWithBooks(t *testing.T) {
	mux, store := newTestAPI(t)

	author := seedAuthor(t, store)
	category := seedCategory(t, store)
	book := &domain.Book{
		Title:       "La Bête humaine",
		PublishedAt: time.Date(1890, 3, 1, 0, 0, 0, 0, time.UTC),
		Available:   true,
		AuthorID:    author.ID,
		CategoryID:  category.ID,
	}
	if err := store.Books().Create(context.Background(), book); err != nil {
		t.Fatalf("failed to seed book: %v", err)
	}

	rr := do(t, mux, http.MethodDelete, fmt.Sprintf("/api/categories/%d", category.ID), "")
	wantError(t, rr, http.StatusConflict, "Impossible de supprimer une catégorie avec des livres associés")
}
