package email

import (
	"context"
	"fmt"

	"github.com/ipede/account-notification-service/internal/domain"
	"github.com/ipede/account-notification-service/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// SMTPSender is the default MessageSender. It delivers messages through
// the configured SMTP server using go-mail, dialing per send so it is
// safe for concurrent use.
type SMTPSender struct {
	config *config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPSender(cfg *config.SMTPConfig, logger *zap.Logger) *SMTPSender {
	return &SMTPSender{config: cfg, logger: logger}
}

// Send delivers msg using the configured SMTP server
func (s *SMTPSender) Send(ctx context.Context, msg domain.Message) error {
	m := mail.NewMsg()
	if err := m.From(s.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(s.config.Encryption)),
	}
	if s.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
		)
	}

	client, err := mail.NewClient(s.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return err
	}

	s.logger.Info("Email sent successfully",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// tlsPolicyFromEncryption converts the encryption setting to a go-mail TLSPolicy
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
