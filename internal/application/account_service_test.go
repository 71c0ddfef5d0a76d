package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/ipede/account-notification-service/internal/infrastructure/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestService(accounts *MockAccountRepository, verifications *MockVerificationRepository, router *recordingRouter, opts ...AccountServiceOption) *AccountService {
	return NewAccountService(accounts, verifications, router, 24*time.Hour, zap.NewNop(), opts...)
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and emits AccountCreated", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		accounts.On("ExistsByUsername", ctx, "jdoe").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "u@x.com").Return(false, nil)
		accounts.On("Create", ctx, mock.Anything).Return(nil)
		verifications.On("Create", ctx, mock.Anything).Return(nil)

		account, err := service.Register(ctx, "jdoe", "u@x.com", "p@ss")
		assert.NoError(t, err)
		assert.Equal(t, "jdoe", account.Username)
		assert.Equal(t, "u@x.com", account.Email)
		assert.NotEqual(t, "p@ss", account.Password)

		assert.Len(t, router.events, 1)
		event := router.events[0]
		assert.Equal(t, domain.EventAccountCreated, event.Kind)
		assert.Equal(t, account, event.Account)
		assert.Equal(t, "p@ss", event.Payload.InitialPassword)
		assert.NotEmpty(t, event.Payload.VerificationKey)
	})

	t.Run("duplicate username is a validation error and emits nothing", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		accounts.On("ExistsByUsername", ctx, "jdoe").Return(true, nil)

		account, err := service.Register(ctx, "jdoe", "u@x.com", "p@ss")
		assert.Nil(t, account)
		assert.True(t, domain.IsValidationError(err))
		assert.Equal(t, "username is already in use", err.Error())
		assert.Empty(t, router.events)
		accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		accounts.On("ExistsByUsername", ctx, "jdoe").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "u@x.com").Return(true, nil)

		_, err := service.Register(ctx, "jdoe", "u@x.com", "p@ss")
		assert.True(t, domain.IsValidationError(err))
		assert.Empty(t, router.events)
	})

	t.Run("missing input is a validation error", func(t *testing.T) {
		service := newTestService(new(MockAccountRepository), new(MockVerificationRepository), &recordingRouter{})

		_, err := service.Register(ctx, "", "u@x.com", "p@ss")
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("router failure does not fail registration", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{err: assert.AnError}
		service := newTestService(accounts, verifications, router)

		accounts.On("ExistsByUsername", ctx, "jdoe").Return(false, nil)
		accounts.On("ExistsByEmail", ctx, "u@x.com").Return(false, nil)
		accounts.On("Create", ctx, mock.Anything).Return(nil)
		verifications.On("Create", ctx, mock.Anything).Return(nil)

		account, err := service.Register(ctx, "jdoe", "u@x.com", "p@ss")
		assert.NoError(t, err)
		assert.NotNil(t, account)
	})
}

func TestAccountService_CancelVerification(t *testing.T) {
	ctx := context.Background()

	t.Run("closes an open verification", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		service := newTestService(accounts, verifications, &recordingRouter{})

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", time.Hour)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)
		verifications.On("Close", ctx, verification.Key, mock.Anything).Return(true, nil)

		closed, err := service.CancelVerification(ctx, verification.Key.String())
		assert.NoError(t, err)
		assert.True(t, closed)
	})

	t.Run("second cancel reports not closed without error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		service := newTestService(accounts, verifications, &recordingRouter{})

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", time.Hour)
		now := time.Now()
		verification.ClosedAt = &now

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)

		closed, err := service.CancelVerification(ctx, verification.Key.String())
		assert.NoError(t, err)
		assert.False(t, closed)
		verifications.AssertNotCalled(t, "Close", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("malformed key is a validation error", func(t *testing.T) {
		service := newTestService(new(MockAccountRepository), new(MockVerificationRepository), &recordingRouter{})

		closed, err := service.CancelVerification(ctx, "not-a-key")
		assert.False(t, closed)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("unknown key is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		service := newTestService(accounts, verifications, &recordingRouter{})

		key := uuid.New()
		verifications.On("FindByKey", ctx, key).Return(nil, domain.ErrVerificationNotFound)

		closed, err := service.CancelVerification(ctx, key.String())
		assert.False(t, closed)
		assert.True(t, domain.IsValidationError(err))
	})

	t.Run("storage failure is surfaced by default", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		service := newTestService(accounts, verifications, &recordingRouter{})

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", time.Hour)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)
		verifications.On("Close", ctx, verification.Key, mock.Anything).Return(false, assert.AnError)

		closed, err := service.CancelVerification(ctx, verification.Key.String())
		assert.False(t, closed)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("storage failure can be silenced explicitly", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		service := newTestService(accounts, verifications, &recordingRouter{}, WithSilencedCancelErrors())

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", time.Hour)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)
		verifications.On("Close", ctx, verification.Key, mock.Anything).Return(false, assert.AnError)

		closed, err := service.CancelVerification(ctx, verification.Key.String())
		assert.False(t, closed)
		assert.NoError(t, err)
	})
}

func TestAccountService_VerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("verifies the email and emits EmailVerified", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", time.Hour)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)
		verifications.On("Close", ctx, verification.Key, mock.Anything).Return(true, nil)

		err := service.VerifyEmail(ctx, verification.Key.String())
		assert.NoError(t, err)
		assert.True(t, account.EmailVerified)
		assert.Len(t, router.events, 1)
		assert.Equal(t, domain.EventEmailVerified, router.events[0].Kind)
	})

	t.Run("email change verification switches the address", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "old@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.ChangeEmailPurpose, "new@x.com", time.Hour)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)
		verifications.On("Close", ctx, verification.Key, mock.Anything).Return(true, nil)

		err := service.VerifyEmail(ctx, verification.Key.String())
		assert.NoError(t, err)
		assert.Equal(t, "new@x.com", account.Email)

		assert.Len(t, router.events, 1)
		event := router.events[0]
		assert.Equal(t, domain.EventEmailChanged, event.Kind)
		assert.Equal(t, "old@x.com", event.Payload.OldEmail)
		assert.Equal(t, "new@x.com", event.Payload.NewEmail)
	})

	t.Run("expired key is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		verification := domain.NewPendingVerification(account.ID, domain.VerifyEmailPurpose, "", -time.Minute)

		verifications.On("FindByKey", ctx, verification.Key).Return(verification, nil)

		err := service.VerifyEmail(ctx, verification.Key.String())
		assert.True(t, domain.IsValidationError(err))
		assert.Empty(t, router.events)
	})
}

func TestAccountService_RequestEmailChange(t *testing.T) {
	ctx := context.Background()

	t.Run("emits EmailChangeRequested with old, new and key", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "old@x.com", "hashed")

		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("ExistsByEmail", ctx, "new@x.com").Return(false, nil)
		verifications.On("DeleteByAccountAndPurpose", ctx, account.ID, domain.ChangeEmailPurpose).Return(nil)
		verifications.On("Create", ctx, mock.Anything).Return(nil)

		err := service.RequestEmailChange(ctx, account.ID, "new@x.com")
		assert.NoError(t, err)

		assert.Len(t, router.events, 1)
		event := router.events[0]
		assert.Equal(t, domain.EventEmailChangeRequested, event.Kind)
		assert.Equal(t, "old@x.com", event.Payload.OldEmail)
		assert.Equal(t, "new@x.com", event.Payload.NewEmail)
		assert.NotEmpty(t, event.Payload.VerificationKey)

		// the account keeps its current address until the key is verified
		assert.Equal(t, "old@x.com", account.Email)
	})

	t.Run("unchanged email is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "old@x.com", "hashed")
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)

		err := service.RequestEmailChange(ctx, account.ID, "old@x.com")
		assert.True(t, domain.IsValidationError(err))
		assert.Empty(t, router.events)
	})
}

func TestAccountService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong current password is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		hashed, err := password.HashPassword("right")
		assert.NoError(t, err)
		account := domain.NewAccount("jdoe", "u@x.com", hashed)
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)

		err = service.ChangePassword(ctx, account.ID, "wrong", "newpass")
		assert.True(t, domain.IsValidationError(err))
		assert.Empty(t, router.events)
	})

	t.Run("emits PasswordChanged", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		hashed, err := password.HashPassword("right")
		assert.NoError(t, err)
		account := domain.NewAccount("jdoe", "u@x.com", hashed)
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("UpdatePassword", ctx, account.ID, mock.Anything).Return(nil)

		err = service.ChangePassword(ctx, account.ID, "right", "newpass")
		assert.NoError(t, err)
		assert.Len(t, router.events, 1)
		assert.Equal(t, domain.EventPasswordChanged, router.events[0].Kind)
	})
}

func TestAccountService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("approve emits AccountApproved", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)

		assert.NoError(t, service.Approve(ctx, account.ID))
		assert.True(t, account.Approved)
		assert.Equal(t, domain.EventAccountApproved, router.events[0].Kind)

		// approving twice is a validation error
		err := service.Approve(ctx, account.ID)
		assert.True(t, domain.IsValidationError(err))
		assert.Len(t, router.events, 1)
	})

	t.Run("close and reopen", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		account.EmailVerified = true
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)

		assert.NoError(t, service.Close(ctx, account.ID))
		assert.True(t, account.Closed)
		assert.NotNil(t, account.ClosedAt)

		assert.NoError(t, service.Reopen(ctx, account.ID))
		assert.False(t, account.Closed)
		assert.Nil(t, account.ClosedAt)

		assert.Equal(t, domain.EventAccountClosed, router.events[0].Kind)
		assert.Equal(t, domain.EventAccountReopened, router.events[1].Kind)
		// verified email means no new verification key
		assert.Empty(t, router.events[1].Payload.VerificationKey)
	})

	t.Run("reopen with unverified email issues a verification key", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		verifications := new(MockVerificationRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, verifications, router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		account.Closed = true
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)
		verifications.On("Create", ctx, mock.Anything).Return(nil)

		assert.NoError(t, service.Reopen(ctx, account.ID))
		assert.NotEmpty(t, router.events[0].Payload.VerificationKey)
	})

	t.Run("unlock emits AccountUnlocked", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		account.LockedOut = true
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("Update", ctx, account).Return(nil)

		assert.NoError(t, service.Unlock(ctx, account.ID))
		assert.False(t, account.LockedOut)
		assert.Equal(t, domain.EventAccountUnlocked, router.events[0].Kind)
	})
}

func TestAccountService_Certificates(t *testing.T) {
	ctx := context.Background()

	t.Run("add emits CertificateAdded with the certificate", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		cert := domain.Certificate{Thumbprint: "ab:cd", Subject: "CN=device"}
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("AddCertificate", ctx, account.ID, cert).Return(nil)

		assert.NoError(t, service.AddCertificate(ctx, account.ID, "ab:cd", "CN=device"))
		assert.Equal(t, domain.EventCertificateAdded, router.events[0].Kind)
		assert.Equal(t, cert, router.events[0].Payload.Certificate)
	})

	t.Run("remove of unknown certificate is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)

		err := service.RemoveCertificate(ctx, account.ID, "ab:cd")
		assert.True(t, domain.IsValidationError(err))
		assert.Empty(t, router.events)
	})
}

func TestAccountService_LinkedAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("link and unlink emit provider events", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		accounts.On("FindByID", ctx, account.ID).Return(account, nil)
		accounts.On("AddLinkedAccount", ctx, account.ID, domain.LinkedAccount{Provider: "google", ProviderID: "g-1"}).Return(nil)
		accounts.On("RemoveLinkedAccount", ctx, account.ID, "google", "g-1").Return(nil)

		assert.NoError(t, service.AddLinkedAccount(ctx, account.ID, "google", "g-1"))
		assert.NoError(t, service.RemoveLinkedAccount(ctx, account.ID, "google", "g-1"))

		assert.Equal(t, domain.EventLinkedAccountAdded, router.events[0].Kind)
		assert.Equal(t, domain.EventLinkedAccountRemoved, router.events[1].Kind)
		assert.Equal(t, "google", router.events[0].Payload.Provider)
	})
}

func TestAccountService_UsernameReminder(t *testing.T) {
	ctx := context.Background()

	t.Run("emits the username", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		account := domain.NewAccount("jdoe", "u@x.com", "hashed")
		accounts.On("FindByEmail", ctx, "u@x.com").Return(account, nil)

		assert.NoError(t, service.RequestUsernameReminder(ctx, "u@x.com"))
		assert.Equal(t, domain.EventUsernameReminderRequested, router.events[0].Kind)
		assert.Equal(t, "jdoe", router.events[0].Payload.Username)
	})

	t.Run("unknown email is a validation error", func(t *testing.T) {
		accounts := new(MockAccountRepository)
		router := &recordingRouter{}
		service := newTestService(accounts, new(MockVerificationRepository), router)

		accounts.On("FindByEmail", ctx, "nobody@x.com").Return(nil, domain.ErrAccountNotFound)

		err := service.RequestUsernameReminder(ctx, "nobody@x.com")
		assert.True(t, domain.IsValidationError(err))
	})
}
