package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"casefile/internal/models"
	"casefile/internal/services"
	pkgauth "casefile/pkg/auth"
	pkghttp "casefile/pkg/http"
)

// RecoveryTokenHeader carries the opaque recovery session token between the
// three steps of the flow.
const RecoveryTokenHeader = "X-Recovery-Token"

// RecoveryServiceInterface defines the interface for the recovery flow
type RecoveryServiceInterface interface {
	Identify(ctx context.Context, username, email string) (*services.IdentifyResponse, error)
	Challenge(ctx context.Context, token, answer string) error
	Reset(ctx context.Context, token, password, confirm string) error
}

// RecoveryHandler handles the three-step account recovery flow
type RecoveryHandler struct {
	service RecoveryServiceInterface
}

func NewRecoveryHandler(service RecoveryServiceInterface) *RecoveryHandler {
	return &RecoveryHandler{service: service}
}

// IdentifyRequest is step one: prove you know the username and email pair.
type IdentifyRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

// ChallengeRequest is step two: answer the security question.
type ChallengeRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// ResetRequest is step three: choose the new password.
type ResetRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Identify opens a recovery session and returns the security question.
func (h *RecoveryHandler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Identify(r.Context(), req.Username, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "No account matches that username and email")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Challenge verifies the security answer for an open recovery session.
func (h *RecoveryHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(RecoveryTokenHeader)

	var req ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Challenge(r.Context(), token, req.Answer); err != nil {
		switch {
		case errors.Is(err, models.ErrRecoveryExpired):
			pkghttp.WriteGone(w, "recovery_expired", "Recovery session has expired, start over")
		case errors.Is(err, models.ErrWrongAnswer):
			pkghttp.WriteUnauthorized(w, "Incorrect answer")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reset completes recovery by setting the new password.
func (h *RecoveryHandler) Reset(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(RecoveryTokenHeader)

	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Reset(r.Context(), token, req.Password, req.ConfirmPassword); err != nil {
		writePasswordError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writePasswordError(w http.ResponseWriter, err error) {
	var policyErr *pkgauth.PasswordValidationError
	switch {
	case errors.Is(err, models.ErrRecoveryExpired):
		pkghttp.WriteGone(w, "recovery_expired", "Recovery session has expired, start over")
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteBadRequest(w, "Passwords do not match")
	case errors.As(err, &policyErr):
		pkghttp.WriteBadRequest(w, policyErr.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
