package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/ipede/account-notification-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type VerificationRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewVerificationRepository(db *database.Postgres, logger *zap.Logger) *VerificationRepository {
	return &VerificationRepository{db: db, logger: logger}
}

func (r *VerificationRepository) Create(ctx context.Context, verification *domain.PendingVerification) error {
	return r.db.Exec(ctx, `
		INSERT INTO pending_verifications (key, account_id, purpose, new_email, expires_at, created_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, verification.Key, verification.AccountID.String(), string(verification.Purpose),
		verification.NewEmail, verification.ExpiresAt, verification.CreatedAt, verification.ClosedAt)
}

func (r *VerificationRepository) FindByKey(ctx context.Context, key uuid.UUID) (*domain.PendingVerification, error) {
	verification := &domain.PendingVerification{}
	err := r.db.QueryRow(ctx, `
		SELECT key, account_id, purpose, new_email, expires_at, created_at, closed_at
		FROM pending_verifications WHERE key = $1
	`, key).Scan(&verification.Key, &verification.AccountID, &verification.Purpose,
		&verification.NewEmail, &verification.ExpiresAt, &verification.CreatedAt, &verification.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVerificationNotFound
		}
		r.logger.Error("failed to find verification", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}
	return verification, nil
}

// Close marks the verification closed. The closed_at guard makes the
// operation idempotent: a verification already closed reports false.
func (r *VerificationRepository) Close(ctx context.Context, key uuid.UUID, at time.Time) (bool, error) {
	affected, err := r.db.ExecAffected(ctx, `
		UPDATE pending_verifications SET closed_at = $1
		WHERE key = $2 AND closed_at IS NULL
	`, at, key)
	if err != nil {
		return false, domain.ErrDatabaseQuery
	}
	return affected > 0, nil
}

func (r *VerificationRepository) DeleteExpired(ctx context.Context, before time.Time) error {
	return r.db.Exec(ctx, `
		DELETE FROM pending_verifications WHERE expires_at < $1
	`, before)
}

func (r *VerificationRepository) DeleteByAccountAndPurpose(ctx context.Context, accountID ulid.ULID, purpose domain.VerificationPurpose) error {
	return r.db.Exec(ctx, `
		DELETE FROM pending_verifications WHERE account_id = $1 AND purpose = $2
	`, accountID.String(), string(purpose))
}
