package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"casefile/internal/models"
	"casefile/internal/services"
	pkgauth "casefile/pkg/auth"
	pkghttp "casefile/pkg/http"
)

// AccountServiceInterface defines the interface for account operations
type AccountServiceInterface interface {
	Create(ctx context.Context, input services.CreateAccountInput) (*services.CreatedAccount, error)
	ForceReset(ctx context.Context, userID uuid.UUID, password, confirm string) (*services.AuthResponse, error)
	SetSecurityQuestion(ctx context.Context, userID uuid.UUID, question, answer string) (string, error)
}

// AccountHandler handles account provisioning and the post-login gates
type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// CreateAccountRequest is the admin-facing create request.
type CreateAccountRequest struct {
	FirstName      string `json:"first_name" validate:"required"`
	LastName       string `json:"last_name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Username       string `json:"username"`
	Staff          bool   `json:"staff"`
	ExpirationDate string `json:"expiration_date"` // YYYY-MM-DD, optional
}

// CreateAccountResponse shows the temporary password exactly once.
type CreateAccountResponse struct {
	Account      *services.AccountResponse `json:"account"`
	TempPassword string                    `json:"temporary_password"`
}

// ForceResetRequest replaces the temporary password at first login.
type ForceResetRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// SecurityQuestionRequest stores the question and answer pair.
type SecurityQuestionRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Create provisions a single account with a generated temporary password.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var expiration *time.Time
	if req.ExpirationDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpirationDate)
		if err != nil {
			pkghttp.WriteBadRequest(w, "expiration_date must be YYYY-MM-DD")
			return
		}
		expiration = &parsed
	}

	created, err := h.service.Create(r.Context(), services.CreateAccountInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Username:       req.Username,
		Staff:          req.Staff,
		ExpirationDate: expiration,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with that username or email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccountResponse{
		Account:      accountResponse(created.Account),
		TempPassword: created.TempPassword,
	})
}

// ForceReset completes the first-login password reset gate.
func (h *AccountHandler) ForceReset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req ForceResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.ForceReset(r.Context(), userID, req.Password, req.ConfirmPassword)
	if err != nil {
		var policyErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrPasswordMismatch):
			pkghttp.WriteBadRequest(w, "Passwords do not match")
		case errors.As(err, &policyErr):
			pkghttp.WriteBadRequest(w, policyErr.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Unauthorized")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SecurityQuestion stores the user's security question and answer.
func (h *AccountHandler) SecurityQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req SecurityQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	redirect, err := h.service.SetSecurityQuestion(r.Context(), userID, req.Question, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Unauthorized")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect": redirect})
}

func accountResponse(account *models.Account) *services.AccountResponse {
	return &services.AccountResponse{
		ID:         account.ID.String(),
		Username:   account.Username,
		Email:      account.Email,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
		Staff:      account.Staff,
		Superuser:  account.Superuser,
		FirstLogin: account.FirstLogin,
		CreatedAt:  account.CreatedAt.Format(time.RFC3339),
	}
}
