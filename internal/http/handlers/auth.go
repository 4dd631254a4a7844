package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/brahmamatch/server/internal/auth"
	"github.com/brahmamatch/server/internal/logging"
	"github.com/brahmamatch/server/internal/verify"
)

// AuthHandler handles the OTP send/verify endpoints.
type AuthHandler struct {
	service *auth.Service
	logger  zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{service: service, logger: logger}
}

type sendOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=6"`
}

type sendOTPResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,min=6"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type verifyOTPResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// HandleSendOTP handles POST /auth/send-otp. Responds 202: the provider only
// confirms dispatch was attempted, not delivery.
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "phone is required (min 6 characters)")
		return
	}

	status, err := h.service.SendOTP(r.Context(), req.Phone)
	if err != nil {
		h.logAuthErr(req.Phone, "send otp failed", err)
		switch {
		case errors.Is(err, verify.ErrProviderRejected):
			respondWithError(w, http.StatusBadRequest, "phone number rejected by verification provider")
		case errors.Is(err, verify.ErrProviderUnavailable):
			respondWithError(w, http.StatusBadGateway, "verification provider unavailable")
		default:
			respondWithError(w, http.StatusInternalServerError, "failed to send OTP")
		}
		return
	}

	respondJSON(w, http.StatusAccepted, sendOTPResponse{
		Status:  status,
		Message: "OTP send attempted",
	})
}

// HandleVerifyOTP handles POST /auth/verify-otp.
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Phone = strings.TrimSpace(req.Phone)
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "phone and a 6-digit code are required")
		return
	}

	ident, token, err := h.service.VerifyOTP(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.logAuthErr(req.Phone, "verify otp failed", err)
		switch {
		case errors.Is(err, auth.ErrVerificationRejected):
			respondWithError(w, http.StatusBadRequest, "invalid OTP or verification not approved")
		case errors.Is(err, verify.ErrProviderRejected):
			respondWithError(w, http.StatusBadRequest, "verification failed")
		case errors.Is(err, verify.ErrProviderUnavailable):
			respondWithError(w, http.StatusBadGateway, "verification provider unavailable")
		default:
			respondWithError(w, http.StatusInternalServerError, "failed to verify OTP")
		}
		return
	}

	userID := ""
	if ident.UserID != nil {
		userID = *ident.UserID
	}
	respondJSON(w, http.StatusOK, verifyOTPResponse{
		Status: "approved",
		Token:  token,
		UserID: userID,
	})
}

func (h *AuthHandler) logAuthErr(rawPhone, msg string, err error) {
	h.logger.Error().
		Err(err).
		Str("phone", logging.MaskPhone(h.service.Normalize(rawPhone))).
		Msg(msg)
}
