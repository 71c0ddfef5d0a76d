package email

import (
	"bytes"
	"text/template"

	"github.com/ipede/account-notification-service/internal/domain"
	"go.uber.org/zap"
)

// messageTemplate is the per-kind subject line and body template. Bodies
// reference extracted fields as {{.Fields.Name}} and the account holder
// as {{.Username}}.
type messageTemplate struct {
	subject string
	body    string
}

var messageTemplates = map[domain.EventKind]messageTemplate{
	domain.EventAccountCreated: {
		subject: "Welcome! Please verify your email",
		body: `
Hi {{.Username}},

Welcome to our platform! We're excited to have you on board.

To get started, please verify your email address using this key:
{{.Fields.VerificationKey}}

If you didn't create this account, you can safely ignore this email.

Best regards,
The Team
`,
	},
	domain.EventPasswordResetRequested: {
		subject: "Reset your password",
		body: `
Hi {{.Username}},

We received a request to reset your password. To proceed, please use this key:
{{.Fields.VerificationKey}}

If you didn't request a password reset, please ignore this email or contact support if you have concerns.

Stay secure,
The Team
`,
	},
	domain.EventPasswordChanged: {
		subject: "Your password was changed",
		body: `
Hi {{.Username}},

The password on your account was just changed.

If this was you, no action is needed. If it wasn't, please contact support immediately.

Stay secure,
The Team
`,
	},
	domain.EventPasswordResetSecretAdded: {
		subject: "A password reset secret was added",
		body: `
Hi {{.Username}},

A password reset secret question was added to your account:
{{.Fields.SecretQuestion}}

If you didn't add it, please contact support.

The Team
`,
	},
	domain.EventPasswordResetSecretRemoved: {
		subject: "A password reset secret was removed",
		body: `
Hi {{.Username}},

The password reset secret question below was removed from your account:
{{.Fields.SecretQuestion}}

If you didn't remove it, please contact support.

The Team
`,
	},
	domain.EventUsernameReminderRequested: {
		subject: "Your username reminder",
		body: `
Hi there,

You asked for a reminder of your username. Here it is:
{{.Fields.Username}}

The Team
`,
	},
	domain.EventAccountApproved: {
		subject: "Your account was approved",
		body: `
Hi {{.Username}},

Good news: your account was approved and is ready to use.

The Team
`,
	},
	domain.EventAccountRejected: {
		subject: "Your account was not approved",
		body: `
Hi {{.Username}},

We're sorry, but your account request was not approved.

The Team
`,
	},
	domain.EventAccountClosed: {
		subject: "Your account was closed",
		body: `
Hi {{.Username}},

Your account was closed. If you change your mind, you can ask us to reopen it.

The Team
`,
	},
	domain.EventAccountReopened: {
		subject: "Your account was reopened",
		body: `
Hi {{.Username}},

Welcome back! Your account was reopened.
{{if .Fields.VerificationKey}}
Your email address still needs to be verified. Please use this key:
{{.Fields.VerificationKey}}
{{end}}
The Team
`,
	},
	domain.EventAccountUnlocked: {
		subject: "Your account was unlocked",
		body: `
Hi {{.Username}},

Your account was unlocked and you can sign in again.

Stay secure,
The Team
`,
	},
	domain.EventUsernameChanged: {
		subject: "Your username was changed",
		body: `
Hi {{.Username}},

Your username was changed from {{.Fields.OldUsername}} to {{.Fields.NewUsername}}.

If you didn't do this, please contact support.

The Team
`,
	},
	domain.EventEmailChangeRequested: {
		subject: "Confirm your new email address",
		body: `
Hi {{.Username}},

We received a request to change your email address from {{.Fields.OldEmail}} to {{.Fields.NewEmail}}.

To confirm the change, please use this key:
{{.Fields.VerificationKey}}

If you didn't request this change, you can safely ignore this email.

The Team
`,
	},
	domain.EventEmailChanged: {
		subject: "Your email address was changed",
		body: `
Hi {{.Username}},

The email address on your account was changed to {{.Fields.NewEmail}}.

If you didn't do this, please contact support immediately.

The Team
`,
	},
	domain.EventEmailVerified: {
		subject: "Your email address was verified",
		body: `
Hi {{.Username}},

Thanks! Your email address was verified and your account is fully set up.

The Team
`,
	},
	domain.EventMobilePhoneChanged: {
		subject: "Your mobile phone number was changed",
		body: `
Hi {{.Username}},

The mobile phone number on your account was changed to {{.Fields.NewMobilePhone}}.

If you didn't do this, please contact support.

The Team
`,
	},
	domain.EventMobilePhoneRemoved: {
		subject: "Your mobile phone number was removed",
		body: `
Hi {{.Username}},

The mobile phone number was removed from your account.

If you didn't do this, please contact support.

The Team
`,
	},
	domain.EventCertificateAdded: {
		subject: "A certificate was added to your account",
		body: `
Hi {{.Username}},

A certificate was registered on your account:
Subject: {{.Fields.Subject}}
Thumbprint: {{.Fields.Thumbprint}}

If you didn't add it, please contact support.

The Team
`,
	},
	domain.EventCertificateRemoved: {
		subject: "A certificate was removed from your account",
		body: `
Hi {{.Username}},

The certificate with thumbprint {{.Fields.Thumbprint}} was removed from your account.

If you didn't remove it, please contact support.

The Team
`,
	},
	domain.EventLinkedAccountAdded: {
		subject: "A sign-in provider was linked to your account",
		body: `
Hi {{.Username}},

Your account can now sign in with {{.Fields.Provider}}.

If you didn't link it, please contact support.

The Team
`,
	},
	domain.EventLinkedAccountRemoved: {
		subject: "A sign-in provider was unlinked from your account",
		body: `
Hi {{.Username}},

Your account can no longer sign in with {{.Fields.Provider}}.

If you didn't unlink it, please contact support.

The Team
`,
	},
}

type templateData struct {
	Username string
	Fields   domain.FieldMap
}

// TemplateFormatter is the default MessageFormatter: one plain-text
// template per event kind. Kinds without a template are suppressed.
type TemplateFormatter struct {
	subjects map[domain.EventKind]string
	bodies   map[domain.EventKind]*template.Template
	logger   *zap.Logger
}

func NewTemplateFormatter(logger *zap.Logger) *TemplateFormatter {
	subjects := make(map[domain.EventKind]string, len(messageTemplates))
	bodies := make(map[domain.EventKind]*template.Template, len(messageTemplates))
	for kind, t := range messageTemplates {
		subjects[kind] = t.subject
		bodies[kind] = template.Must(template.New(string(kind)).Parse(t.body))
	}
	return &TemplateFormatter{
		subjects: subjects,
		bodies:   bodies,
		logger:   logger,
	}
}

// Format renders the template for the event's kind. The recipient is
// left blank; the dispatcher resolves it.
func (f *TemplateFormatter) Format(event domain.Event, fields domain.FieldMap) *domain.Message {
	body, ok := f.bodies[event.Kind]
	if !ok {
		return nil
	}

	data := templateData{Fields: fields}
	if event.Account != nil {
		data.Username = event.Account.Username
	}

	var buf bytes.Buffer
	if err := body.Execute(&buf, data); err != nil {
		f.logger.Error("failed to render notification template",
			zap.String("kind", string(event.Kind)),
			zap.Error(err))
		return nil
	}

	return &domain.Message{
		Subject: f.subjects[event.Kind],
		Body:    buf.String(),
	}
}
