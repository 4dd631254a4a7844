package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/middleware"
	"github.com/brahmamatch/server/internal/model"
	"github.com/brahmamatch/server/internal/repo"
)

// maxImageBytes bounds uploaded image size (stored base64 in the profile
// document, so oversized uploads bloat every read).
const maxImageBytes = 5 << 20

// ProfileHandler exposes profile documents and image uploads over HTTP.
type ProfileHandler struct {
	profiles repo.ProfileRepo
	logger   zerolog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profiles repo.ProfileRepo, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// profileRequest is the partial-update payload. Any user_id in the payload is
// ignored; ownership comes from the token.
type profileRequest struct {
	FullName       *string  `json:"full_name"`
	FathersName    *string  `json:"fathers_name"`
	MothersName    *string  `json:"mothers_name"`
	Interests      []string `json:"interests"`
	DateOfBirth    *string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	BirthPlace     *string  `json:"birth_place"`
	Education      *string  `json:"education"`
	HomeTown       *string  `json:"home_town"`
	MamaPariwar    *string  `json:"mama_pariwar"`
	Manglik        *bool    `json:"manglik"`
	HeightCm       *float64 `json:"height" validate:"omitempty,gte=0"`
	Age            *int     `json:"age" validate:"omitempty,gte=0,lte=150"`
	Gotra          *string  `json:"gotra" validate:"omitempty,min=1"`
	JobEmployer    *string  `json:"job_employer"`
	JobDesignation *string  `json:"job_designation"`
	JobLocation    *string  `json:"job_location"`
	SalaryRange    *string  `json:"salary_range" validate:"omitempty,oneof=below_1l 1_2l 2_3l 3_5l 5_7l 7_10l 10_15l 15_25l above_25l"`
	AboutMe        *string  `json:"about_me"`
}

func (p profileRequest) toParams() repo.UpdateProfileParams {
	params := repo.UpdateProfileParams{
		FullName:       p.FullName,
		FathersName:    p.FathersName,
		MothersName:    p.MothersName,
		Interests:      p.Interests,
		BirthPlace:     p.BirthPlace,
		Education:      p.Education,
		HomeTown:       p.HomeTown,
		MamaPariwar:    p.MamaPariwar,
		Manglik:        p.Manglik,
		HeightCm:       p.HeightCm,
		Age:            p.Age,
		Gotra:          p.Gotra,
		JobEmployer:    p.JobEmployer,
		JobDesignation: p.JobDesignation,
		JobLocation:    p.JobLocation,
		SalaryRange:    p.SalaryRange,
		AboutMe:        p.AboutMe,
	}
	if p.DateOfBirth != nil {
		// Format already validated.
		dob, err := time.Parse("2006-01-02", *p.DateOfBirth)
		if err == nil {
			params.DateOfBirth = &dob
		}
	}
	return params
}

type profileResponse struct {
	UserID         string     `json:"user_id"`
	FullName       *string    `json:"full_name,omitempty"`
	FathersName    *string    `json:"fathers_name,omitempty"`
	MothersName    *string    `json:"mothers_name,omitempty"`
	Interests      []string   `json:"interests,omitempty"`
	DateOfBirth    *string    `json:"date_of_birth,omitempty"`
	BirthPlace     *string    `json:"birth_place,omitempty"`
	Education      *string    `json:"education,omitempty"`
	HomeTown       *string    `json:"home_town,omitempty"`
	MamaPariwar    *string    `json:"mama_pariwar,omitempty"`
	Manglik        *bool      `json:"manglik,omitempty"`
	HeightCm       *float64   `json:"height,omitempty"`
	Age            *int       `json:"age,omitempty"`
	Gotra          *string    `json:"gotra,omitempty"`
	JobEmployer    *string    `json:"job_employer,omitempty"`
	JobDesignation *string    `json:"job_designation,omitempty"`
	JobLocation    *string    `json:"job_location,omitempty"`
	SalaryRange    *string    `json:"salary_range,omitempty"`
	AboutMe        *string    `json:"about_me,omitempty"`
	ProfileImage   *string    `json:"profile_image,omitempty"`
	GalleryImages  []string   `json:"gallery_images"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toProfileResponse(p model.Profile) profileResponse {
	out := profileResponse{
		UserID:         p.UserID,
		FullName:       p.FullName,
		FathersName:    p.FathersName,
		MothersName:    p.MothersName,
		Interests:      p.Interests,
		BirthPlace:     p.BirthPlace,
		Education:      p.Education,
		HomeTown:       p.HomeTown,
		MamaPariwar:    p.MamaPariwar,
		Manglik:        p.Manglik,
		HeightCm:       p.HeightCm,
		Age:            p.Age,
		Gotra:          p.Gotra,
		JobEmployer:    p.JobEmployer,
		JobDesignation: p.JobDesignation,
		JobLocation:    p.JobLocation,
		SalaryRange:    p.SalaryRange,
		AboutMe:        p.AboutMe,
		ProfileImage:   p.ProfileImage,
		GalleryImages:  p.GalleryImages,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if out.GalleryImages == nil {
		out.GalleryImages = []string{}
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format("2006-01-02")
		out.DateOfBirth = &dob
	}
	return out
}

// ownerUserID resolves the authenticated caller's user_id. Tokens are only
// issued on approved verification, which guarantees the id exists; the check
// covers tokens outliving an admin delete-and-recreate.
func ownerUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ident, ok := middleware.GetIdentity(r.Context())
	if !ok || ident == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	if !ident.HasUserID() {
		respondWithError(w, http.StatusForbidden, "account registration incomplete")
		return "", false
	}
	return *ident.UserID, true
}

// HandleUpsertMine handles POST /user/createProfile (owner-only).
func (h *ProfileHandler) HandleUpsertMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerUserID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid profile fields")
		return
	}

	profile, err := h.profiles.Upsert(r.Context(), userID, req.toParams())
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("upsert profile failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

// HandleGetMine handles GET /user/myProfile (owner-only).
func (h *ProfileHandler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("get profile failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

// HandleList handles GET /profiles?skip&limit (admin-style).
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r)

	profiles, err := h.profiles.List(r.Context(), skip, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list profiles failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}

// HandleGetByUserID handles GET /profiles/{user_id}.
func (h *ProfileHandler) HandleGetByUserID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	profile, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("get profile failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, toProfileResponse(profile))
}

// HandleDeleteByUserID handles DELETE /profiles/{user_id} (admin-style).
func (h *ProfileHandler) HandleDeleteByUserID(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	deleted, err := h.profiles.Delete(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("delete profile failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !deleted {
		respondWithError(w, http.StatusNotFound, "profile not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleUploadProfileImage handles POST /user/profile/upload-profile-image.
// Accepts multipart/form-data with a "file" field and stores it base64.
func (h *ProfileHandler) HandleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerUserID(w, r)
	if !ok {
		return
	}

	b64, ok := readImageField(w, r)
	if !ok {
		return
	}

	if err := h.profiles.SetProfileImage(r.Context(), userID, b64); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("set profile image failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "profile image uploaded",
		"user_id": userID,
	})
}

// HandleUploadGalleryImage handles POST /user/profile/upload-gallery-image.
func (h *ProfileHandler) HandleUploadGalleryImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := ownerUserID(w, r)
	if !ok {
		return
	}

	b64, ok := readImageField(w, r)
	if !ok {
		return
	}

	if err := h.profiles.AppendGalleryImage(r.Context(), userID, b64); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("append gallery image failed")
		respondWithError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "gallery image added",
		"user_id": userID,
	})
}

// readImageField extracts the multipart "file" field as base64, writing the
// error response itself when the upload is unusable.
func readImageField(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return "", false
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "file too large")
		return "", false
	}
	if len(raw) == 0 {
		respondWithError(w, http.StatusBadRequest, "empty file")
		return "", false
	}
	return base64.StdEncoding.EncodeToString(raw), true
}
