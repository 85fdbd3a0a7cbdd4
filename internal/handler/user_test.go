package handler

import (
	"fmt"
	"net/http"
	"testing"
)

func TestUserCRUD(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPost, "/api/utilisateurs", `{"nom":"Valjean","prenom":"Jean"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	var created userResponse
	decode(t, rr, &created)
	if created.ID == 0 || created.Nom != "Valjean" {
		t.Fatalf("unexpected body %+v", created)
	}

	rr = do(t, mux, http.MethodPut, fmt.Sprintf("/api/utilisateurs/%d", created.ID), `{"prenom":"Cosette"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var updated userResponse
	decode(t, rr, &updated)
	if updated.Nom != "Valjean" || updated.Prenom != "Cosette" {
		t.Fatalf("unexpected body %+v", updated)
	}

	rr = do(t, mux, http.MethodDelete, fmt.Sprintf("/api/utilisateurs/%d", created.ID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	rr = do(t, mux, http.MethodGet, fmt.Sprintf("/api/utilisateurs/%d", created.ID), "")
	wantError(t, rr, http.StatusNotFound, "Utilisateur non trouvé")
}

func TestUserCreateValidation(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPost, "/api/utilisateurs", `{"prenom":"Jean"}`)
	wantError(t, rr, http.StatusBadRequest, "Le champ 'nom' est requis")
}

func TestUserDeleteWithActiveLoan(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Les Misérables")
	user := seedUser(t, store, "Valjean")

	borrow(t, mux, book.ID, user.ID)

	rr := do(t, mux, http.MethodDelete, fmt.Sprintf("/api/utilisateurs/%d", user.ID), "")
	wantError(t, rr, http.StatusConflict, "Impossible de supprimer un utilisateur avec des emprunts en cours")
}
