package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// VerificationPurpose represents the pending action a verification key resolves
type VerificationPurpose string

const (
	VerifyEmailPurpose   VerificationPurpose = "verify_email"
	ChangeEmailPurpose   VerificationPurpose = "change_email"
	ResetPasswordPurpose VerificationPurpose = "reset_password"
	ReopenAccountPurpose VerificationPurpose = "reopen_account"
)

// PendingVerification is a cancelable pending action on an account,
// identified by an opaque verification key.
type PendingVerification struct {
	Key       uuid.UUID           `json:"key"`
	AccountID ulid.ULID           `json:"account_id"`
	Purpose   VerificationPurpose `json:"purpose"`
	NewEmail  string              `json:"new_email,omitempty"` // set for email-change verifications
	ExpiresAt time.Time           `json:"expires_at"`
	CreatedAt time.Time           `json:"created_at"`
	ClosedAt  *time.Time          `json:"closed_at,omitempty"`
}

// NewPendingVerification creates a pending verification for an account
func NewPendingVerification(accountID ulid.ULID, purpose VerificationPurpose, newEmail string, expiresIn time.Duration) *PendingVerification {
	now := time.Now()
	return &PendingVerification{
		Key:       uuid.New(),
		AccountID: accountID,
		Purpose:   purpose,
		NewEmail:  newEmail,
		ExpiresAt: now.Add(expiresIn),
		CreatedAt: now,
	}
}

// IsExpired checks if the verification is past its expiry
func (v *PendingVerification) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

// IsClosed checks if the verification has already been resolved or cancelled
func (v *PendingVerification) IsClosed() bool {
	return v.ClosedAt != nil
}

// VerificationRepository defines the interface for pending verification operations
type VerificationRepository interface {
	// Create stores a new pending verification
	Create(ctx context.Context, verification *PendingVerification) error

	// FindByKey finds a pending verification by its key
	FindByKey(ctx context.Context, key uuid.UUID) (*PendingVerification, error)

	// Close marks a verification as resolved. It reports false when the
	// verification was already closed, so callers stay idempotent.
	Close(ctx context.Context, key uuid.UUID, at time.Time) (bool, error)

	// DeleteExpired deletes verifications that expired before the given time
	DeleteExpired(ctx context.Context, before time.Time) error

	// DeleteByAccountAndPurpose deletes all verifications for an account and purpose
	DeleteByAccountAndPurpose(ctx context.Context, accountID ulid.ULID, purpose VerificationPurpose) error
}
