package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"
)

type MockMessageFormatter struct {
	mock.Mock
}

func (m *MockMessageFormatter) Format(event domain.Event, fields domain.FieldMap) *domain.Message {
	args := m.Called(event, fields)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Message)
}

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) Send(ctx context.Context, msg domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id ulid.ULID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, accountID ulid.ULID, hashedPassword string) error {
	args := m.Called(ctx, accountID, hashedPassword)
	return args.Error(0)
}

func (m *MockAccountRepository) AddCertificate(ctx context.Context, accountID ulid.ULID, cert domain.Certificate) error {
	args := m.Called(ctx, accountID, cert)
	return args.Error(0)
}

func (m *MockAccountRepository) RemoveCertificate(ctx context.Context, accountID ulid.ULID, thumbprint string) error {
	args := m.Called(ctx, accountID, thumbprint)
	return args.Error(0)
}

func (m *MockAccountRepository) AddLinkedAccount(ctx context.Context, accountID ulid.ULID, link domain.LinkedAccount) error {
	args := m.Called(ctx, accountID, link)
	return args.Error(0)
}

func (m *MockAccountRepository) RemoveLinkedAccount(ctx context.Context, accountID ulid.ULID, provider, providerID string) error {
	args := m.Called(ctx, accountID, provider, providerID)
	return args.Error(0)
}

func (m *MockAccountRepository) AddResetSecret(ctx context.Context, accountID ulid.ULID, secret domain.PasswordResetSecret) error {
	args := m.Called(ctx, accountID, secret)
	return args.Error(0)
}

func (m *MockAccountRepository) RemoveResetSecret(ctx context.Context, accountID ulid.ULID, secretID ulid.ULID) error {
	args := m.Called(ctx, accountID, secretID)
	return args.Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

type MockVerificationRepository struct {
	mock.Mock
}

func (m *MockVerificationRepository) Create(ctx context.Context, verification *domain.PendingVerification) error {
	args := m.Called(ctx, verification)
	return args.Error(0)
}

func (m *MockVerificationRepository) FindByKey(ctx context.Context, key uuid.UUID) (*domain.PendingVerification, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingVerification), args.Error(1)
}

func (m *MockVerificationRepository) Close(ctx context.Context, key uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, key, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationRepository) DeleteExpired(ctx context.Context, before time.Time) error {
	args := m.Called(ctx, before)
	return args.Error(0)
}

func (m *MockVerificationRepository) DeleteByAccountAndPurpose(ctx context.Context, accountID ulid.ULID, purpose domain.VerificationPurpose) error {
	args := m.Called(ctx, accountID, purpose)
	return args.Error(0)
}

// recordingRouter captures routed events so service tests can assert on
// emitted kinds and payloads.
type recordingRouter struct {
	events []domain.Event
	err    error
}

func (r *recordingRouter) Route(_ context.Context, event domain.Event) error {
	r.events = append(r.events, event)
	return r.err
}
