package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/yourorg/bibliotheque/internal/domain"
	"github.com/yourorg/bibliotheque/internal/service"
)

// LoanHandler serves /api/emprunts
type LoanHandler struct {
	loans  *service.LoanService
	logger *slog.Logger
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loans *service.LoanService, logger *slog.Logger) *LoanHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoanHandler{loans: loans, logger: logger}
}

type borrowRequest struct {
	BookID int64 `json:"book_id"`
	UserID int64 `json:"user_id"`
	// Legacy field names, kept for existing callers.
	LivreID       int64 `json:"livre_id"`
	UtilisateurID int64 `json:"utilisateur_id"`
}

func (req *borrowRequest) resolve() (bookID, userID int64) {
	bookID = req.BookID
	if bookID == 0 {
		bookID = req.LivreID
	}
	userID = req.UserID
	if userID == 0 {
		userID = req.UtilisateurID
	}
	return bookID, userID
}

type borrowResponse struct {
	Message string `json:"message"`
	LoanID  int64  `json:"loan_id"`
	BookID  int64  `json:"book_id"`
	UserID  int64  `json:"user_id"`
}

type returnResponse struct {
	Message    string `json:"message"`
	ReturnDate string `json:"returnDate"`
}

type loanResponse struct {
	ID              int64   `json:"id"`
	BookTitle       string  `json:"book_title"`
	UserDisplayName string  `json:"user_display_name"`
	LoanDate        string  `json:"loanDate"`
	ReturnDate      *string `json:"returnDate"`
}

// Borrow handles POST /api/emprunts
func (h *LoanHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	bookID, userID := req.resolve()
	if bookID == 0 || userID == 0 {
		writeError(w, h.logger, domain.Invalid("Paramètres manquants"))
		return
	}

	loan, err := h.loans.Borrow(r.Context(), bookID, userID)
	if err != nil {
		writeError(w, h.logger, err,
			slog.Int64("book_id", bookID),
			slog.Int64("user_id", userID),
		)
		return
	}

	writeJSON(w, http.StatusCreated, borrowResponse{
		Message: "Livre emprunté avec succès",
		LoanID:  loan.ID,
		BookID:  loan.BookID,
		UserID:  loan.UserID,
	})
}

// Return handles PATCH /api/emprunts/{id}/rendre
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Emprunt non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	receipt, err := h.loans.Return(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("loan_id", id))
		return
	}

	writeJSON(w, http.StatusOK, returnResponse{
		Message:    fmt.Sprintf(`Le livre "%s" a bien été rendu.`, receipt.BookTitle),
		ReturnDate: receipt.ReturnedAt.Format(timestampFormat),
	})
}

// List handles GET /api/emprunts
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	loans, err := h.loans.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		resp := loanResponse{
			ID:              l.ID,
			BookTitle:       l.BookTitle,
			UserDisplayName: l.UserName,
			LoanDate:        l.LoanedAt.Format(timestampFormat),
		}
		if l.ReturnedAt != nil {
			formatted := l.ReturnedAt.Format(timestampFormat)
			resp.ReturnDate = &formatted
		}
		data = append(data, resp)
	}
	writeJSON(w, http.StatusOK, data)
}
