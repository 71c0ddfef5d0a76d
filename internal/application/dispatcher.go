package application

import (
	"context"
	"errors"
	"strings"

	"github.com/ipede/account-notification-service/internal/domain"
	"go.uber.org/zap"
)

var (
	// ErrNilFormatter is returned when a dispatcher is built without a formatter
	ErrNilFormatter = errors.New("dispatcher requires a message formatter")

	// ErrNilSender is returned when a dispatcher is built without a sender
	ErrNilSender = errors.New("dispatcher requires a message sender")
)

// Dispatcher runs the notification pipeline for a single lifecycle
// event: extract fields, format, resolve the recipient, customize,
// deliver. It holds no mutable state, so concurrent Process calls for
// independent events are safe as long as the injected formatter and
// sender are.
type Dispatcher struct {
	formatter domain.MessageFormatter
	sender    domain.MessageSender
	customize domain.CustomizeFunc
	logger    *zap.Logger
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithCustomize installs the deployment customization step. The default
// leaves messages unchanged.
func WithCustomize(fn domain.CustomizeFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.customize = fn
		}
	}
}

// NewDispatcher creates a dispatcher. It fails when the formatter or
// sender is missing; the pipeline never runs half-configured.
func NewDispatcher(formatter domain.MessageFormatter, sender domain.MessageSender, logger *zap.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if formatter == nil {
		return nil, ErrNilFormatter
	}
	if sender == nil {
		return nil, ErrNilSender
	}

	d := &Dispatcher{
		formatter: formatter,
		sender:    sender,
		customize: func(msg domain.Message, _ domain.Event, _ domain.FieldMap) *domain.Message {
			return &msg
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Process runs the pipeline for one event. It performs at most one
// delivery; a nil result from the formatter or the customization step,
// or a blank recipient, ends the pipeline silently.
func (d *Dispatcher) Process(ctx context.Context, event domain.Event, bindings []domain.FieldBinding) error {
	fields := domain.ExtractFields(event.Payload, bindings)

	formatted := d.formatter.Format(event, fields)
	if formatted == nil {
		d.logger.Debug("notification suppressed by formatter",
			zap.String("kind", string(event.Kind)))
		return nil
	}

	// Work on a copy so the formatter's message is never mutated.
	msg := *formatted

	// During an email change the verification notice must reach the new,
	// not-yet-confirmed address.
	if newEmail, ok := fields[domain.FieldNewEmail]; ok {
		msg.To = newEmail
	} else if event.Account != nil {
		msg.To = event.Account.Email
	}

	customized := d.customize(msg, event, fields)
	if customized == nil {
		d.logger.Debug("notification suppressed by customization",
			zap.String("kind", string(event.Kind)))
		return nil
	}
	msg = *customized

	if strings.TrimSpace(msg.To) == "" {
		d.logger.Debug("notification has no recipient, skipping",
			zap.String("kind", string(event.Kind)))
		return nil
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("failed to deliver notification",
			zap.String("kind", string(event.Kind)),
			zap.String("to", msg.To),
			zap.Error(err))
		return err
	}

	d.logger.Info("notification delivered",
		zap.String("kind", string(event.Kind)),
		zap.String("to", msg.To))
	return nil
}
