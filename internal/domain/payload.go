package domain

// Field names as they appear in the field map handed to the formatter.
// Templates reference these names, so they are part of the contract
// between the event producers and the deployment's templates.
const (
	FieldInitialPassword = "InitialPassword"
	FieldVerificationKey = "VerificationKey"
	FieldUsername        = "Username"
	FieldOldUsername     = "OldUsername"
	FieldNewUsername     = "NewUsername"
	FieldOldEmail        = "OldEmail"
	FieldNewEmail        = "NewEmail"
	FieldOldMobilePhone  = "OldMobilePhone"
	FieldNewMobilePhone  = "NewMobilePhone"
	FieldThumbprint      = "Thumbprint"
	FieldSubject         = "Subject"
	FieldProvider        = "Provider"
	FieldSecretQuestion  = "SecretQuestion"
)

// Payload carries the kind-specific values that accompany a lifecycle
// event. Only the members bound to the event's kind in EventFields ever
// reach the formatter; unset members are ignored.
type Payload struct {
	InitialPassword string
	VerificationKey string
	Username        string
	OldUsername     string
	NewUsername     string
	OldEmail        string
	NewEmail        string
	OldMobilePhone  string
	NewMobilePhone  string
	Certificate     Certificate
	Provider        string
	SecretQuestion  string
}

// FieldBinding names one payload member and knows how to read it.
type FieldBinding struct {
	Name string
	Get  func(Payload) string
}

// EventFields binds each event kind to the payload fields it contributes
// to the field map. Adding a new event kind means adding exactly one row
// here; the extractor and the dispatcher need no changes.
var EventFields = map[EventKind][]FieldBinding{
	EventAccountCreated: {
		{FieldInitialPassword, func(p Payload) string { return p.InitialPassword }},
		{FieldVerificationKey, func(p Payload) string { return p.VerificationKey }},
	},
	EventPasswordResetRequested: {
		{FieldVerificationKey, func(p Payload) string { return p.VerificationKey }},
	},
	EventPasswordChanged: {},
	EventPasswordResetSecretAdded: {
		{FieldSecretQuestion, func(p Payload) string { return p.SecretQuestion }},
	},
	EventPasswordResetSecretRemoved: {
		{FieldSecretQuestion, func(p Payload) string { return p.SecretQuestion }},
	},
	EventUsernameReminderRequested: {
		{FieldUsername, func(p Payload) string { return p.Username }},
	},
	EventAccountApproved: {},
	EventAccountRejected: {},
	EventAccountClosed:   {},
	EventAccountReopened: {
		{FieldVerificationKey, func(p Payload) string { return p.VerificationKey }},
	},
	EventAccountUnlocked: {},
	EventUsernameChanged: {
		{FieldOldUsername, func(p Payload) string { return p.OldUsername }},
		{FieldNewUsername, func(p Payload) string { return p.NewUsername }},
	},
	EventEmailChangeRequested: {
		{FieldOldEmail, func(p Payload) string { return p.OldEmail }},
		{FieldNewEmail, func(p Payload) string { return p.NewEmail }},
		{FieldVerificationKey, func(p Payload) string { return p.VerificationKey }},
	},
	EventEmailChanged: {
		{FieldOldEmail, func(p Payload) string { return p.OldEmail }},
		{FieldNewEmail, func(p Payload) string { return p.NewEmail }},
	},
	EventEmailVerified: {},
	EventMobilePhoneChanged: {
		{FieldOldMobilePhone, func(p Payload) string { return p.OldMobilePhone }},
		{FieldNewMobilePhone, func(p Payload) string { return p.NewMobilePhone }},
	},
	EventMobilePhoneRemoved: {},
	EventCertificateAdded: {
		{FieldThumbprint, func(p Payload) string { return p.Certificate.Thumbprint }},
		{FieldSubject, func(p Payload) string { return p.Certificate.Subject }},
	},
	EventCertificateRemoved: {
		{FieldThumbprint, func(p Payload) string { return p.Certificate.Thumbprint }},
	},
	EventLinkedAccountAdded: {
		{FieldProvider, func(p Payload) string { return p.Provider }},
	},
	EventLinkedAccountRemoved: {
		{FieldProvider, func(p Payload) string { return p.Provider }},
	},
}

// FieldsFor returns the field bindings for the given event kind
func FieldsFor(kind EventKind) []FieldBinding {
	return EventFields[kind]
}
