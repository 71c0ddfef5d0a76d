package domain

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID represents a Universally Unique Lexicographically Sortable Identifier
type ULID = ulid.ULID

// Certificate is a client certificate registered to an account,
// identified by its thumbprint.
type Certificate struct {
	Thumbprint string `json:"thumbprint"`
	Subject    string `json:"subject"`
}

// LinkedAccount is an external identity linked to an account.
type LinkedAccount struct {
	Provider   string `json:"provider"`
	ProviderID string `json:"provider_id"`
}

// PasswordResetSecret is a question/answer pair an account holder can
// register as an additional password reset check.
type PasswordResetSecret struct {
	ID       ulid.ULID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"-"`
}

// Account represents a user account in the system
type Account struct {
	ID             ulid.ULID             `json:"id"`
	Username       string                `json:"username"`
	Email          string                `json:"email"`
	MobilePhone    string                `json:"mobile_phone,omitempty"`
	Password       string                `json:"-"` // Password hash is not serialized to JSON
	EmailVerified  bool                  `json:"email_verified"`
	Approved       bool                  `json:"approved"`
	Closed         bool                  `json:"closed"`
	LockedOut      bool                  `json:"locked_out"`
	Certificates   []Certificate         `json:"certificates,omitempty"`
	LinkedAccounts []LinkedAccount       `json:"linked_accounts,omitempty"`
	ResetSecrets   []PasswordResetSecret `json:"-"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ClosedAt       *time.Time            `json:"closed_at,omitempty"`
}

// NewAccount creates a new account instance
func NewAccount(username, email, hashedPassword string) *Account {
	now := time.Now()
	return &Account{
		ID:        ulid.Make(),
		Username:  username,
		Email:     email,
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasCertificate checks if the account has a certificate with the given thumbprint
func (a *Account) HasCertificate(thumbprint string) bool {
	for _, c := range a.Certificates {
		if c.Thumbprint == thumbprint {
			return true
		}
	}
	return false
}

// AddCertificate adds a certificate to the account
func (a *Account) AddCertificate(cert Certificate) {
	if a.HasCertificate(cert.Thumbprint) {
		return
	}
	a.Certificates = append(a.Certificates, cert)
}

// RemoveCertificate removes the certificate with the given thumbprint
func (a *Account) RemoveCertificate(thumbprint string) {
	for i, c := range a.Certificates {
		if c.Thumbprint == thumbprint {
			a.Certificates = append(a.Certificates[:i], a.Certificates[i+1:]...)
			return
		}
	}
}

// HasLinkedAccount checks if the account is linked to the given provider identity
func (a *Account) HasLinkedAccount(provider, providerID string) bool {
	for _, l := range a.LinkedAccounts {
		if l.Provider == provider && l.ProviderID == providerID {
			return true
		}
	}
	return false
}

// AddLinkedAccount links an external identity to the account
func (a *Account) AddLinkedAccount(link LinkedAccount) {
	if a.HasLinkedAccount(link.Provider, link.ProviderID) {
		return
	}
	a.LinkedAccounts = append(a.LinkedAccounts, link)
}

// RemoveLinkedAccount unlinks an external identity from the account
func (a *Account) RemoveLinkedAccount(provider, providerID string) {
	for i, l := range a.LinkedAccounts {
		if l.Provider == provider && l.ProviderID == providerID {
			a.LinkedAccounts = append(a.LinkedAccounts[:i], a.LinkedAccounts[i+1:]...)
			return
		}
	}
}

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// Create creates a new account in the database
	Create(ctx context.Context, account *Account) error

	// FindByID finds an account by ID
	FindByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// FindByUsername finds an account by username
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByEmail finds an account by email
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// ExistsByUsername checks if an account exists with the given username
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail checks if an account exists with the given email
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Update updates an account's scalar fields
	Update(ctx context.Context, account *Account) error

	// UpdatePassword updates an account's password hash
	UpdatePassword(ctx context.Context, accountID ulid.ULID, hashedPassword string) error

	// AddCertificate registers a certificate for an account
	AddCertificate(ctx context.Context, accountID ulid.ULID, cert Certificate) error

	// RemoveCertificate removes a certificate from an account
	RemoveCertificate(ctx context.Context, accountID ulid.ULID, thumbprint string) error

	// AddLinkedAccount links an external identity to an account
	AddLinkedAccount(ctx context.Context, accountID ulid.ULID, link LinkedAccount) error

	// RemoveLinkedAccount unlinks an external identity from an account
	RemoveLinkedAccount(ctx context.Context, accountID ulid.ULID, provider, providerID string) error

	// AddResetSecret registers a password reset secret for an account
	AddResetSecret(ctx context.Context, accountID ulid.ULID, secret PasswordResetSecret) error

	// RemoveResetSecret removes a password reset secret from an account
	RemoveResetSecret(ctx context.Context, accountID ulid.ULID, secretID ulid.ULID) error

	// Delete deletes an account
	Delete(ctx context.Context, id ulid.ULID) error

	// List lists accounts with pagination
	List(ctx context.Context, limit, offset int) ([]*Account, error)
}
