package repository

import (
	"context"
	"errors"

	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/ipede/account-notification-service/internal/infrastructure/database"
	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type AccountRepository struct {
	db     *database.Postgres
	logger *zap.Logger
}

func NewAccountRepository(db *database.Postgres, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{db: db, logger: logger}
}

const accountColumns = `
	id, username, email, mobile_phone, password, email_verified,
	approved, closed, locked_out, created_at, updated_at, closed_at
`

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.db.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, account.ID.String(), account.Username, account.Email, account.MobilePhone,
		account.Password, account.EmailVerified, account.Approved, account.Closed,
		account.LockedOut, account.CreatedAt, account.UpdatedAt, account.ClosedAt)
}

func (r *AccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.Account, error) {
	return r.findBy(ctx, "id = $1", id.String())
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findBy(ctx, "username = $1", username)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findBy(ctx, "email = $1", email)
}

func (r *AccountRepository) findBy(ctx context.Context, where string, arg interface{}) (*domain.Account, error) {
	account := &domain.Account{}
	err := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE `+where,
		arg).Scan(&account.ID, &account.Username, &account.Email, &account.MobilePhone,
		&account.Password, &account.EmailVerified, &account.Approved, &account.Closed,
		&account.LockedOut, &account.CreatedAt, &account.UpdatedAt, &account.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		r.logger.Error("failed to find account", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}

	if err := r.loadAssociations(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *AccountRepository) loadAssociations(ctx context.Context, account *domain.Account) error {
	rows, err := r.db.Query(ctx, `
		SELECT thumbprint, subject FROM account_certificates WHERE account_id = $1
	`, account.ID.String())
	if err != nil {
		return domain.ErrDatabaseQuery
	}
	defer rows.Close()
	for rows.Next() {
		var cert domain.Certificate
		if err := rows.Scan(&cert.Thumbprint, &cert.Subject); err != nil {
			return domain.ErrDatabaseQuery
		}
		account.Certificates = append(account.Certificates, cert)
	}

	rows, err = r.db.Query(ctx, `
		SELECT provider, provider_id FROM account_linked_accounts WHERE account_id = $1
	`, account.ID.String())
	if err != nil {
		return domain.ErrDatabaseQuery
	}
	defer rows.Close()
	for rows.Next() {
		var link domain.LinkedAccount
		if err := rows.Scan(&link.Provider, &link.ProviderID); err != nil {
			return domain.ErrDatabaseQuery
		}
		account.LinkedAccounts = append(account.LinkedAccounts, link)
	}

	rows, err = r.db.Query(ctx, `
		SELECT id, question, answer FROM account_reset_secrets WHERE account_id = $1
	`, account.ID.String())
	if err != nil {
		return domain.ErrDatabaseQuery
	}
	defer rows.Close()
	for rows.Next() {
		var secret domain.PasswordResetSecret
		if err := rows.Scan(&secret.ID, &secret.Question, &secret.Answer); err != nil {
			return domain.ErrDatabaseQuery
		}
		account.ResetSecrets = append(account.ResetSecrets, secret)
	}

	return nil
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE username = $1", username).Scan(&count)
	if err != nil {
		r.logger.Error("failed to check if username exists", zap.Error(err))
		return false, domain.ErrDatabaseQuery
	}
	return count > 0, nil
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM accounts WHERE email = $1", email).Scan(&count)
	if err != nil {
		r.logger.Error("failed to check if email exists", zap.Error(err))
		return false, domain.ErrDatabaseQuery
	}
	return count > 0, nil
}

func (r *AccountRepository) Update(ctx context.Context, account *domain.Account) error {
	return r.db.Exec(ctx, `
		UPDATE accounts
		SET username = $1, email = $2, mobile_phone = $3, email_verified = $4,
			approved = $5, closed = $6, locked_out = $7, updated_at = $8, closed_at = $9
		WHERE id = $10
	`, account.Username, account.Email, account.MobilePhone, account.EmailVerified,
		account.Approved, account.Closed, account.LockedOut, account.UpdatedAt,
		account.ClosedAt, account.ID.String())
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID ulid.ULID, hashedPassword string) error {
	return r.db.Exec(ctx, `
		UPDATE accounts SET password = $1, updated_at = now() WHERE id = $2
	`, hashedPassword, accountID.String())
}

func (r *AccountRepository) AddCertificate(ctx context.Context, accountID ulid.ULID, cert domain.Certificate) error {
	return r.db.Exec(ctx, `
		INSERT INTO account_certificates (account_id, thumbprint, subject)
		VALUES ($1, $2, $3)
	`, accountID.String(), cert.Thumbprint, cert.Subject)
}

func (r *AccountRepository) RemoveCertificate(ctx context.Context, accountID ulid.ULID, thumbprint string) error {
	return r.db.Exec(ctx, `
		DELETE FROM account_certificates WHERE account_id = $1 AND thumbprint = $2
	`, accountID.String(), thumbprint)
}

func (r *AccountRepository) AddLinkedAccount(ctx context.Context, accountID ulid.ULID, link domain.LinkedAccount) error {
	return r.db.Exec(ctx, `
		INSERT INTO account_linked_accounts (account_id, provider, provider_id)
		VALUES ($1, $2, $3)
	`, accountID.String(), link.Provider, link.ProviderID)
}

func (r *AccountRepository) RemoveLinkedAccount(ctx context.Context, accountID ulid.ULID, provider, providerID string) error {
	return r.db.Exec(ctx, `
		DELETE FROM account_linked_accounts
		WHERE account_id = $1 AND provider = $2 AND provider_id = $3
	`, accountID.String(), provider, providerID)
}

func (r *AccountRepository) AddResetSecret(ctx context.Context, accountID ulid.ULID, secret domain.PasswordResetSecret) error {
	return r.db.Exec(ctx, `
		INSERT INTO account_reset_secrets (id, account_id, question, answer)
		VALUES ($1, $2, $3, $4)
	`, secret.ID.String(), accountID.String(), secret.Question, secret.Answer)
}

func (r *AccountRepository) RemoveResetSecret(ctx context.Context, accountID ulid.ULID, secretID ulid.ULID) error {
	return r.db.Exec(ctx, `
		DELETE FROM account_reset_secrets WHERE account_id = $1 AND id = $2
	`, accountID.String(), secretID.String())
}

func (r *AccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return r.db.Exec(ctx, "DELETE FROM accounts WHERE id = $1", id.String())
}

func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		r.logger.Error("failed to list accounts", zap.Error(err))
		return nil, domain.ErrDatabaseQuery
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account := &domain.Account{}
		err := rows.Scan(&account.ID, &account.Username, &account.Email, &account.MobilePhone,
			&account.Password, &account.EmailVerified, &account.Approved, &account.Closed,
			&account.LockedOut, &account.CreatedAt, &account.UpdatedAt, &account.ClosedAt)
		if err != nil {
			return nil, domain.ErrDatabaseQuery
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}
