package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func borrow(t *testing.T, mux *http.ServeMux, bookID, userID int64) borrowResponse {
	t.Helper()

	body := fmt.Sprintf(`{"book_id":%d,"user_id":%d}`, bookID, userID)
	rr := do(t, mux, http.MethodPost, "/api/emprunts", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("borrow failed: %d (%s)", rr.Code, rr.Body.String())
	}
	var resp borrowResponse
	decode(t, rr, &resp)
	return resp
}

func TestBorrowCreatesLoan(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")
	user := seedUser(t, store, "Coupeau")

	resp := borrow(t, mux, book.ID, user.ID)
	if resp.Message != "Livre emprunté avec succès" {
		t.Fatalf("unexpected message %q", resp.Message)
	}
	if resp.LoanID == 0 || resp.BookID != book.ID || resp.UserID != user.ID {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestBorrowLegacyFieldNames(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")
	user := seedUser(t, store, "Coupeau")

	body := fmt.Sprintf(`{"livre_id":%d,"utilisateur_id":%d}`, book.ID, user.ID)
	rr := do(t, mux, http.MethodPost, "/api/emprunts", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
}

func TestBorrowValidation(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPost, "/api/emprunts", `{"book_id":1}`)
	wantError(t, rr, http.StatusBadRequest, "Paramètres manquants")

	rr = do(t, mux, http.MethodPost, "/api/emprunts", `{"book_id":`)
	wantError(t, rr, http.StatusBadRequest, "JSON invalide")
}

func TestBorrowUnknownEntities(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")

	body := fmt.Sprintf(`{"book_id":%d,"user_id":999}`, book.ID)
	rr := do(t, mux, http.MethodPost, "/api/emprunts", body)
	wantError(t, rr, http.StatusNotFound, "Livre ou utilisateur introuvable")
}

func TestBorrowUnavailableBook(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")
	first := seedUser(t, store, "Coupeau")
	second := seedUser(t, store, "Lantier")

	borrow(t, mux, book.ID, first.ID)

	body := fmt.Sprintf(`{"book_id":%d,"user_id":%d}`, book.ID, second.ID)
	rr := do(t, mux, http.MethodPost, "/api/emprunts", body)
	wantError(t, rr, http.StatusBadRequest, "Ce livre est déjà emprunté")
}

func TestBorrowLimitReached(t *testing.T) {
	mux, store := newTestAPI(t)
	user := seedUser(t, store, "Coupeau")

	for i := 0; i < 4; i++ {
		book := seedBook(t, store, fmt.Sprintf("Tome %d", i+1))
		borrow(t, mux, book.ID, user.ID)
	}

	extra := seedBook(t, store, "Tome de trop")
	body := fmt.Sprintf(`{"book_id":%d,"user_id":%d}`, extra.ID, user.ID)
	rr := do(t, mux, http.MethodPost, "/api/emprunts", body)
	wantError(t, rr, http.StatusBadRequest, "Limite de 4 emprunts atteinte")
}

func TestReturnLoan(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")
	user := seedUser(t, store, "Coupeau")

	resp := borrow(t, mux, book.ID, user.ID)

	rr := do(t, mux, http.MethodPatch, fmt.Sprintf("/api/emprunts/%d/rendre", resp.LoanID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}

	var ret returnResponse
	decode(t, rr, &ret)
	if ret.Message != `Le livre "Nana" a bien été rendu.` {
		t.Fatalf("unexpected message %q", ret.Message)
	}
	if _, err := time.Parse(timestampFormat, ret.ReturnDate); err != nil {
		t.Fatalf("bad return date %q: %v", ret.ReturnDate, err)
	}

	// Second return is rejected.
	rr = do(t, mux, http.MethodPatch, fmt.Sprintf("/api/emprunts/%d/rendre", resp.LoanID), "")
	wantError(t, rr, http.StatusBadRequest, "Ce livre a déjà été rendu.")
}

func TestReturnUnknownLoan(t *testing.T) {
	mux, _ := newTestAPI(t)

	rr := do(t, mux, http.MethodPatch, "/api/emprunts/999/rendre", "")
	wantError(t, rr, http.StatusNotFound, "Emprunt non trouvé")
}

func TestLoanList(t *testing.T) {
	mux, store := newTestAPI(t)
	book := seedBook(t, store, "Nana")
	user := seedUser(t, store, "Coupeau")

	resp := borrow(t, mux, book.ID, user.ID)

	rr := do(t, mux, http.MethodGet, "/api/emprunts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var loans []loanResponse
	decode(t, rr, &loans)
	if len(loans) != 1 {
		t.Fatalf("expected 1 loan, got %d", len(loans))
	}
	l := loans[0]
	if l.ID != resp.LoanID || l.BookTitle != "Nana" || l.UserDisplayName != "Coupeau" {
		t.Fatalf("unexpected loan %+v", l)
	}
	if _, err := time.Parse(timestampFormat, l.LoanDate); err != nil {
		t.Fatalf("bad loan date %q: %v", l.LoanDate, err)
	}
	if l.ReturnDate != nil {
		t.Fatalf("active loan should have a null return date")
	}

	// After the return the listing carries the return date.
	rr = do(t, mux, http.MethodPatch, fmt.Sprintf("/api/emprunts/%d/rendre", resp.LoanID), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("return failed: %d", rr.Code)
	}

	rr = do(t, mux, http.MethodGet, "/api/emprunts", "")
	loans = nil
	decode(t, rr, &loans)
	if len(loans) != 1 || loans[0].ReturnDate == nil {
		t.Fatalf("returned loan should keep its entry with a return date: %+v", loans)
	}
}
