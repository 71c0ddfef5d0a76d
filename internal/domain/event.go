package domain

import "context"

// EventKind discriminates the lifecycle event variants. The set is
// closed: every kind has a field binding row in EventFields and a
// template in the default formatter.
type EventKind string

const (
	EventAccountCreated             EventKind = "account_created"
	EventPasswordResetRequested     EventKind = "password_reset_requested"
	EventPasswordChanged            EventKind = "password_changed"
	EventPasswordResetSecretAdded   EventKind = "password_reset_secret_added"
	EventPasswordResetSecretRemoved EventKind = "password_reset_secret_removed"
	EventUsernameReminderRequested  EventKind = "username_reminder_requested"
	EventAccountApproved            EventKind = "account_approved"
	EventAccountRejected            EventKind = "account_rejected"
	EventAccountClosed              EventKind = "account_closed"
	EventAccountReopened            EventKind = "account_reopened"
	EventAccountUnlocked            EventKind = "account_unlocked"
	EventUsernameChanged            EventKind = "username_changed"
	EventEmailChangeRequested       EventKind = "email_change_requested"
	EventEmailChanged               EventKind = "email_changed"
	EventEmailVerified              EventKind = "email_verified"
	EventMobilePhoneChanged         EventKind = "mobile_phone_changed"
	EventMobilePhoneRemoved         EventKind = "mobile_phone_removed"
	EventCertificateAdded           EventKind = "certificate_added"
	EventCertificateRemoved         EventKind = "certificate_removed"
	EventLinkedAccountAdded         EventKind = "linked_account_added"
	EventLinkedAccountRemoved       EventKind = "linked_account_removed"
)

// Event records a completed state transition on an account. Events are
// immutable once constructed; the notification pipeline never mutates
// them and does not persist them.
type Event struct {
	Kind    EventKind
	Account *Account
	Payload Payload
}

// NewEvent creates a lifecycle event for the given account
func NewEvent(kind EventKind, account *Account, payload Payload) Event {
	return Event{
		Kind:    kind,
		Account: account,
		Payload: payload,
	}
}

// EventRouter routes a lifecycle event into the notification pipeline
type EventRouter interface {
	Route(ctx context.Context, event Event) error
}
