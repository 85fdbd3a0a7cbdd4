package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/bibliotheque/internal/domain"
)

// UserHandler serves /api/utilisateurs
type UserHandler struct {
	users  domain.UserRepository
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users domain.UserRepository, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &UserHandler{users: users, logger: logger}
}

type userResponse struct {
	ID     int64  `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
}

func serializeUser(u *domain.User) userResponse {
	return userResponse{
		ID:     u.ID,
		Nom:    u.LastName,
		Prenom: u.FirstName,
	}
}

// List handles GET /api/utilisateurs
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]userResponse, 0, len(users))
	for _, u := range users {
		data = append(data, serializeUser(u))
	}
	writeJSON(w, http.StatusOK, data)
}

// Show handles GET /api/utilisateurs/{id}
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Utilisateur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, serializeUser(user))
}

// Create handles POST /api/utilisateurs
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Nom    string `json:"nom"`
		Prenom string `json:"prenom"`
	}
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

	user := &domain.User{
		LastName:  req.Nom,
		FirstName: req.Prenom,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("user created", slog.Int64("id", user.ID))
	writeJSON(w, http.StatusCreated, serializeUser(user))
}

// Update handles PUT /api/utilisateurs/{id} with partial bodies
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Utilisateur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	var req struct {
		Nom    *string `json:"nom"`
		Prenom *string `json:"prenom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, domain.Invalid("JSON invalide"))
		return
	}

	if req.Nom != nil {
		user.LastName = *req.Nom
	}
	if req.Prenom != nil {
		user.FirstName = *req.Prenom
	}

	if err := h.users.Update(r.Context(), user); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("user updated", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, serializeUser(user))
}

// Delete handles DELETE /api/utilisateurs/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "Utilisateur non trouvé")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err, slog.Int64("id", id))
		return
	}

	h.logger.Info("user deleted", slog.Int64("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Utilisateur supprimé avec succès"})
}
