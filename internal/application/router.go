package application

import (
	"context"

	"github.com/ipede/account-notification-service/internal/domain"
	"go.uber.org/zap"
)

// EventRouter binds each lifecycle event kind to the payload fields it
// contributes and forwards the event to the dispatcher. The binding
// table lives in domain.EventFields; a kind without a row is still
// dispatched, just with no fields.
type EventRouter struct {
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewEventRouter creates an event router backed by the given dispatcher
func NewEventRouter(dispatcher *Dispatcher, logger *zap.Logger) *EventRouter {
	return &EventRouter{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Route looks up the field bindings for the event's kind and runs the
// notification pipeline
func (r *EventRouter) Route(ctx context.Context, event domain.Event) error {
	bindings, ok := domain.EventFields[event.Kind]
	if !ok {
		r.logger.Warn("no field bindings for event kind",
			zap.String("kind", string(event.Kind)))
	}
	return r.dispatcher.Process(ctx, event, bindings)
}
