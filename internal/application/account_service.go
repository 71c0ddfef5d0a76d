package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/ipede/account-notification-service/internal/infrastructure/password"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// AccountService owns the account lifecycle: every state transition is
// persisted first and then emitted as exactly one lifecycle event
// through the router. Notification is best-effort relative to state; a
// routing failure is logged, never rolled back.
type AccountService struct {
	accounts          domain.AccountRepository
	verifications     domain.VerificationRepository
	router            domain.EventRouter
	verificationTTL   time.Duration
	silenceCancelErrs bool
	logger            *zap.Logger
}

// AccountServiceOption configures an AccountService
type AccountServiceOption func(*AccountService)

// WithSilencedCancelErrors makes CancelVerification log storage failures
// instead of returning them. Failures are surfaced by default.
func WithSilencedCancelErrors() AccountServiceOption {
	return func(s *AccountService) {
		s.silenceCancelErrs = true
	}
}

func NewAccountService(
	accounts domain.AccountRepository,
	verifications domain.VerificationRepository,
	router domain.EventRouter,
	verificationTTL time.Duration,
	logger *zap.Logger,
	opts ...AccountServiceOption,
) *AccountService {
	s := &AccountService{
		accounts:        accounts,
		verifications:   verifications,
		router:          router,
		verificationTTL: verificationTTL,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account and emits AccountCreated with the
// initial password and a fresh email verification key.
func (s *AccountService) Register(ctx context.Context, username, email, passwordStr string) (*domain.Account, error) {
	if username == "" {
		return nil, domain.NewValidationError("username is required")
	}
	if email == "" {
		return nil, domain.NewValidationError("email is required")
	}
	if passwordStr == "" {
		return nil, domain.NewValidationError("password is required")
	}

	taken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewValidationError("username is already in use")
	}

	taken, err = s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewValidationError("email is already in use")
	}

	hashed, err := password.HashPassword(passwordStr)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, domain.ErrInternal
	}

	account := domain.NewAccount(username, email, hashed)
	if err := s.accounts.Create(ctx, account); err != nil {
		s.logger.Error("failed to create account", zap.Error(err))
		return nil, err
	}

	verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", s.verificationTTL)
	if err := s.verifications.Create(ctx, verification); err != nil {
		s.logger.Error("failed to create verification", zap.Error(err))
		return nil, err
	}

	s.emit(ctx, domain.EventAccountCreated, account, domain.Payload{
		InitialPassword: passwordStr,
		VerificationKey: verification.Key.String(),
	})
	return account, nil
}

// VerifyEmail resolves a pending email verification by its key. For an
// email-change verification it also switches the account to the new
// address.
func (s *AccountService) VerifyEmail(ctx context.Context, key string) error {
	verification, err := s.findOpenVerification(ctx, key)
	if err != nil {
		return err
	}

	account, err := s.findAccount(ctx, verification.AccountID)
	if err != nil {
		return err
	}

	switch verification.Purpose {
	case domain.VerifyEmailPurpose, domain.ReopenAccountPurpose:
		account.EmailVerified = true
		account.UpdatedAt = time.Now()
		if err := s.accounts.Update(ctx, account); err != nil {
			return err
		}
		if _, err := s.verifications.Close(ctx, verification.Key, time.Now()); err != nil {
			return err
		}
		s.emit(ctx, domain.EventEmailVerified, account, domain.Payload{})

	case domain.ChangeEmailPurpose:
		oldEmail := account.Email
		account.Email = verification.NewEmail
		account.EmailVerified = true
		account.UpdatedAt = time.Now()
		if err := s.accounts.Update(ctx, account); err != nil {
			return err
		}
		if _, err := s.verifications.Close(ctx, verification.Key, time.Now()); err != nil {
			return err
		}
		s.emit(ctx, domain.EventEmailChanged, account, domain.Payload{
			OldEmail: oldEmail,
			NewEmail: account.Email,
		})

	default:
		return domain.NewValidationError("verification key does not verify an email")
	}

	return nil
}

// CancelVerification voids the pending action identified by key. It
// reports whether anything was actually closed; cancelling an already
// resolved verification yields (false, nil). The operation is
// idempotent.
func (s *AccountService) CancelVerification(ctx context.Context, key string) (bool, error) {
	parsed, err := uuid.Parse(key)
	if err != nil {
		return false, domain.NewValidationError("invalid verification key")
	}

	verification, err := s.verifications.FindByKey(ctx, parsed)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationNotFound) {
			return false, domain.NewValidationError("unknown verification key")
		}
		return false, err
	}
	if verification.IsClosed() {
		return false, nil
	}

	closed, err := s.verifications.Close(ctx, verification.Key, time.Now())
	if err != nil {
		if s.silenceCancelErrs {
			s.logger.Error("failed to cancel verification",
				zap.String("key", key), zap.Error(err))
			return false, nil
		}
		return false, err
	}
	return closed, nil
}

// RequestEmailChange starts an email change. The account keeps its
// current address until the key sent to the new address is verified.
func (s *AccountService) RequestEmailChange(ctx context.Context, accountID ulid.ULID, newEmail string) error {
	if newEmail == "" {
		return domain.NewValidationError("new email is required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Email == newEmail {
		return domain.NewValidationError("email is unchanged")
	}

	taken, err := s.accounts.ExistsByEmail(ctx, newEmail)
	if err != nil {
		return err
	}
	if taken {
		return domain.NewValidationError("email is already in use")
	}

	// A new request supersedes any change already in flight.
	if err := s.verifications.DeleteByAccountAndPurpose(ctx, account.ID, domain.ChangeEmailPurpose); err != nil {
		return err
	}

	verification := domain.NewPendingVerification(account.ID, domain.ChangeEmailPurpose, newEmail, s.verificationTTL)
	if err := s.verifications.Create(ctx, verification); err != nil {
		return err
	}

	s.emit(ctx, domain.EventEmailChangeRequested, account, domain.Payload{
		OldEmail:        account.Email,
		NewEmail:        newEmail,
		VerificationKey: verification.Key.String(),
	})
	return nil
}

// ChangeUsername renames the account
func (s *AccountService) ChangeUsername(ctx context.Context, accountID ulid.ULID, newUsername string) error {
	if newUsername == "" {
		return domain.NewValidationError("new username is required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Username == newUsername {
		return domain.NewValidationError("username is unchanged")
	}

	taken, err := s.accounts.ExistsByUsername(ctx, newUsername)
	if err != nil {
		return err
	}
	if taken {
		return domain.NewValidationError("username is already in use")
	}

	oldUsername := account.Username
	account.Username = newUsername
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventUsernameChanged, account, domain.Payload{
		OldUsername: oldUsername,
		NewUsername: newUsername,
	})
	return nil
}

// ChangePassword replaces the account password after checking the
// current one
func (s *AccountService) ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return domain.NewValidationError("new password is required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := password.CheckPassword(oldPassword, account.Password); err != nil {
		return domain.NewValidationError("current password is incorrect")
	}

	hashed, err := password.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return domain.ErrInternal
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hashed); err != nil {
		return err
	}

	s.emit(ctx, domain.EventPasswordChanged, account, domain.Payload{})
	return nil
}

// RequestPasswordReset creates a reset key for the account with the
// given email
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.NewValidationError("no account found for that email")
		}
		return err
	}

	if err := s.verifications.DeleteByAccountAndPurpose(ctx, account.ID, domain.ResetPasswordPurpose); err != nil {
		return err
	}

	verification := domain.NewPendingVerification(account.ID, domain.ResetPasswordPurpose, "", s.verificationTTL)
	if err := s.verifications.Create(ctx, verification); err != nil {
		return err
	}

	s.emit(ctx, domain.EventPasswordResetRequested, account, domain.Payload{
		VerificationKey: verification.Key.String(),
	})
	return nil
}

// ResetPasswordFromKey completes a password reset started with
// RequestPasswordReset
func (s *AccountService) ResetPasswordFromKey(ctx context.Context, key, newPassword string) error {
	if newPassword == "" {
		return domain.NewValidationError("new password is required")
	}

	verification, err := s.findOpenVerification(ctx, key)
	if err != nil {
		return err
	}
	if verification.Purpose != domain.ResetPasswordPurpose {
		return domain.NewValidationError("verification key does not reset a password")
	}

	account, err := s.findAccount(ctx, verification.AccountID)
	if err != nil {
		return err
	}

	hashed, err := password.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return domain.ErrInternal
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hashed); err != nil {
		return err
	}
	if _, err := s.verifications.Close(ctx, verification.Key, time.Now()); err != nil {
		return err
	}

	s.emit(ctx, domain.EventPasswordChanged, account, domain.Payload{})
	return nil
}

// AddPasswordResetSecret registers a question/answer pair. The answer is
// stored hashed.
func (s *AccountService) AddPasswordResetSecret(ctx context.Context, accountID ulid.ULID, question, answer string) error {
	if question == "" || answer == "" {
		return domain.NewValidationError("question and answer are required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}

	hashedAnswer, err := password.HashAnswer(answer)
	if err != nil {
		s.logger.Error("failed to hash reset secret answer", zap.Error(err))
		return domain.ErrInternal
	}

	secret := domain.PasswordResetSecret{
		ID:       ulid.Make(),
		Question: question,
		Answer:   hashedAnswer,
	}
	if err := s.accounts.AddResetSecret(ctx, account.ID, secret); err != nil {
		return err
	}

	s.emit(ctx, domain.EventPasswordResetSecretAdded, account, domain.Payload{
		SecretQuestion: question,
	})
	return nil
}

// RemovePasswordResetSecret removes a previously registered secret
func (s *AccountService) RemovePasswordResetSecret(ctx context.Context, accountID ulid.ULID, secretID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}

	var question string
	for _, secret := range account.ResetSecrets {
		if secret.ID == secretID {
			question = secret.Question
			break
		}
	}
	if question == "" {
		return domain.NewValidationError("reset secret not found")
	}

	if err := s.accounts.RemoveResetSecret(ctx, account.ID, secretID); err != nil {
		return err
	}

	s.emit(ctx, domain.EventPasswordResetSecretRemoved, account, domain.Payload{
		SecretQuestion: question,
	})
	return nil
}

// RequestUsernameReminder emails the account holder their username
func (s *AccountService) RequestUsernameReminder(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.NewValidationError("no account found for that email")
		}
		return err
	}

	s.emit(ctx, domain.EventUsernameReminderRequested, account, domain.Payload{
		Username: account.Username,
	})
	return nil
}

// Approve marks a pending account as approved
func (s *AccountService) Approve(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Approved {
		return domain.NewValidationError("account is already approved")
	}

	account.Approved = true
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventAccountApproved, account, domain.Payload{})
	return nil
}

// Reject removes a pending account that was not approved
func (s *AccountService) Reject(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Approved {
		return domain.NewValidationError("cannot reject an approved account")
	}

	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}

	s.emit(ctx, domain.EventAccountRejected, account, domain.Payload{})
	return nil
}

// Close closes an open account
func (s *AccountService) Close(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Closed {
		return domain.NewValidationError("account is already closed")
	}

	now := time.Now()
	account.Closed = true
	account.ClosedAt = &now
	account.UpdatedAt = now
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventAccountClosed, account, domain.Payload{})
	return nil
}

// Reopen reopens a closed account. When the email was never verified a
// fresh verification key is issued and included in the notification.
func (s *AccountService) Reopen(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.Closed {
		return domain.NewValidationError("account is not closed")
	}

	account.Closed = false
	account.ClosedAt = nil
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	payload := domain.Payload{}
	if !account.EmailVerified {
		verification := domain.NewPendingVerification(account.ID, domain.ReopenAccountPurpose, "", s.verificationTTL)
		if err := s.verifications.Create(ctx, verification); err != nil {
			return err
		}
		payload.VerificationKey = verification.Key.String()
	}

	s.emit(ctx, domain.EventAccountReopened, account, payload)
	return nil
}

// Unlock clears a lockout
func (s *AccountService) Unlock(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.LockedOut {
		return domain.NewValidationError("account is not locked")
	}

	account.LockedOut = false
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventAccountUnlocked, account, domain.Payload{})
	return nil
}

// ChangeMobilePhone sets a new mobile phone number
func (s *AccountService) ChangeMobilePhone(ctx context.Context, accountID ulid.ULID, newPhone string) error {
	if newPhone == "" {
		return domain.NewValidationError("mobile phone is required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.MobilePhone == newPhone {
		return domain.NewValidationError("mobile phone is unchanged")
	}

	oldPhone := account.MobilePhone
	account.MobilePhone = newPhone
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventMobilePhoneChanged, account, domain.Payload{
		OldMobilePhone: oldPhone,
		NewMobilePhone: newPhone,
	})
	return nil
}

// RemoveMobilePhone clears the mobile phone number
func (s *AccountService) RemoveMobilePhone(ctx context.Context, accountID ulid.ULID) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.MobilePhone == "" {
		return domain.NewValidationError("no mobile phone to remove")
	}

	account.MobilePhone = ""
	account.UpdatedAt = time.Now()
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	s.emit(ctx, domain.EventMobilePhoneRemoved, account, domain.Payload{})
	return nil
}

// AddCertificate registers a client certificate
func (s *AccountService) AddCertificate(ctx context.Context, accountID ulid.ULID, thumbprint, subject string) error {
	if thumbprint == "" {
		return domain.NewValidationError("certificate thumbprint is required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.HasCertificate(thumbprint) {
		return domain.NewValidationError("certificate is already registered")
	}

	cert := domain.Certificate{Thumbprint: thumbprint, Subject: subject}
	if err := s.accounts.AddCertificate(ctx, account.ID, cert); err != nil {
		return err
	}
	account.AddCertificate(cert)

	s.emit(ctx, domain.EventCertificateAdded, account, domain.Payload{
		Certificate: cert,
	})
	return nil
}

// RemoveCertificate removes a registered client certificate
func (s *AccountService) RemoveCertificate(ctx context.Context, accountID ulid.ULID, thumbprint string) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasCertificate(thumbprint) {
		return domain.NewValidationError("certificate not found")
	}

	if err := s.accounts.RemoveCertificate(ctx, account.ID, thumbprint); err != nil {
		return err
	}
	account.RemoveCertificate(thumbprint)

	s.emit(ctx, domain.EventCertificateRemoved, account, domain.Payload{
		Certificate: domain.Certificate{Thumbprint: thumbprint},
	})
	return nil
}

// AddLinkedAccount links an external identity
func (s *AccountService) AddLinkedAccount(ctx context.Context, accountID ulid.ULID, provider, providerID string) error {
	if provider == "" || providerID == "" {
		return domain.NewValidationError("provider and provider id are required")
	}

	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if account.HasLinkedAccount(provider, providerID) {
		return domain.NewValidationError("account is already linked to that identity")
	}

	link := domain.LinkedAccount{Provider: provider, ProviderID: providerID}
	if err := s.accounts.AddLinkedAccount(ctx, account.ID, link); err != nil {
		return err
	}
	account.AddLinkedAccount(link)

	s.emit(ctx, domain.EventLinkedAccountAdded, account, domain.Payload{
		Provider: provider,
	})
	return nil
}

// RemoveLinkedAccount unlinks an external identity
func (s *AccountService) RemoveLinkedAccount(ctx context.Context, accountID ulid.ULID, provider, providerID string) error {
	account, err := s.findAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.HasLinkedAccount(provider, providerID) {
		return domain.NewValidationError("linked account not found")
	}

	if err := s.accounts.RemoveLinkedAccount(ctx, account.ID, provider, providerID); err != nil {
		return err
	}
	account.RemoveLinkedAccount(provider, providerID)

	s.emit(ctx, domain.EventLinkedAccountRemoved, account, domain.Payload{
		Provider: provider,
	})
	return nil
}

// GetAccount retrieves an account by ID
func (s *AccountService) GetAccount(ctx context.Context, accountID ulid.ULID) (*domain.Account, error) {
	return s.findAccount(ctx, accountID)
}

func (s *AccountService) findAccount(ctx context.Context, accountID ulid.ULID) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// findOpenVerification parses the key and loads a verification that is
// neither closed nor expired
func (s *AccountService) findOpenVerification(ctx context.Context, key string) (*domain.PendingVerification, error) {
	parsed, err := uuid.Parse(key)
	if err != nil {
		return nil, domain.NewValidationError("invalid verification key")
	}

	verification, err := s.verifications.FindByKey(ctx, parsed)
	if err != nil {
		if errors.Is(err, domain.ErrVerificationNotFound) {
			return nil, domain.NewValidationError("unknown verification key")
		}
		return nil, err
	}
	if verification.IsClosed() {
		return nil, domain.NewValidationError("verification key was already used")
	}
	if verification.IsExpired() {
		return nil, domain.NewValidationError("verification key has expired")
	}
	return verification, nil
}

func (s *AccountService) emit(ctx context.Context, kind domain.EventKind, account *domain.Account, payload domain.Payload) {
	if err := s.router.Route(ctx, domain.NewEvent(kind, account, payload)); err != nil {
		s.logger.Error("failed to route lifecycle event",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
