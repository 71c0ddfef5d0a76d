package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/ipede/account-notification-service/internal/domain"
	httperrors "github.com/ipede/account-notification-service/internal/interfaces/http/errors"
	"go.uber.org/zap"
)

// AccountService is the application boundary the web layer talks to
type AccountService interface {
	Register(ctx context.Context, username, email, password string) (*domain.Account, error)
	VerifyEmail(ctx context.Context, key string) error
	CancelVerification(ctx context.Context, key string) (bool, error)
	RequestPasswordReset(ctx context.Context, email string) error
	RequestUsernameReminder(ctx context.Context, email string) error
}

type AccountHandler struct {
	service  AccountService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAccountHandler(service AccountService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// HandleRegister creates a new account. Validation failures surface as
// a single form-level error so the registration form can redisplay the
// input with one message.
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, "username, email and a password of at least 8 characters are required")
		return
	}

	account, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err, "failed to register account")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		ID:       account.ID.String(),
		Username: account.Username,
		Email:    account.Email,
	})
}

type verifyEmailRequest struct {
	Key string `json:"key" validate:"required"`
}

// HandleVerifyEmail resolves a pending email verification
func (h *AccountHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, "verification key is required")
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Key); err != nil {
		h.respondError(w, err, "failed to verify email")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type cancelVerificationResponse struct {
	Closed bool `json:"closed"`
}

// HandleCancelVerification voids a pending verification. Cancelling an
// already resolved key reports closed=false and is not an error.
func (h *AccountHandler) HandleCancelVerification(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	closed, err := h.service.CancelVerification(r.Context(), key)
	if err != nil {
		h.respondError(w, err, "failed to cancel verification")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cancelVerificationResponse{Closed: closed})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRequestPasswordReset starts a password reset for the account
// with the given email
func (h *AccountHandler) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, "a valid email is required")
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondError(w, err, "failed to request password reset")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleUsernameReminder emails the account holder their username
func (h *AccountHandler) HandleUsernameReminder(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondValidationError(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httperrors.RespondValidationError(w, "a valid email is required")
		return
	}

	if err := h.service.RequestUsernameReminder(r.Context(), req.Email); err != nil {
		h.respondError(w, err, "failed to request username reminder")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *AccountHandler) respondError(w http.ResponseWriter, err error, logMsg string) {
	if domain.IsValidationError(err) {
		httperrors.RespondValidationError(w, err.Error())
		return
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		httperrors.RespondNotFound(w, err.Error())
		return
	}
	h.logger.Error(logMsg, zap.Error(err))
	httperrors.RespondInternalError(w)
}
