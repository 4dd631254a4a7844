package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/middleware"
	"github.com/brahmamatch/server/internal/model"
	"github.com/brahmamatch/server/internal/repo"
)

// UserHandler exposes identity records over HTTP.
type UserHandler struct {
	identities repo.IdentityRepo
	logger     zerolog.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(identities repo.IdentityRepo, logger zerolog.Logger) *UserHandler {
	return &UserHandler{identities: identities, logger: logger}
}

// userResponse is the identity snapshot returned to clients.
type userResponse struct {
	UserID     *string    `json:"user_id"`
	Phone      string     `json:"phone"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
}

func toUserResponse(i model.Identity) userResponse {
	return userResponse{
		UserID:     i.UserID,
		Phone:      i.Phone,
		IsVerified: i.IsVerified,
		CreatedAt:  i.CreatedAt,
		LastLogin:  i.LastLogin,
	}
}

// HandleMe handles GET /user/me (protected).
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok || ident == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(*ident))
}

// HandleList handles GET /users?skip&limit (admin-style).
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)

	idents, err := h.identities.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list identities failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]userResponse, 0, len(idents))
	for _, i := range idents {
		out = append(out, toUserResponse(i))
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleGetByID handles GET /users/{user_id}.
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	ident, err := h.identities.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("get identity failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, toUserResponse(ident))
}

// HandleDeleteByID handles DELETE /users/{user_id} (admin-style; identities
// are never deleted automatically).
func (h *UserHandler) HandleDeleteByID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	deleted, err := h.identities.DeleteByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("delete identity failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		respondWithError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
