package domain

import "context"

// Message is a rendered notification ready for delivery. A nil *Message
// anywhere in the pipeline means "do not send"; that is distinct from a
// present-but-empty message, which still flows through the pipeline.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MessageFormatter turns an event and its extracted fields into a
// message. Returning nil means "do not notify for this event" and is
// not an error.
type MessageFormatter interface {
	Format(event Event, fields FieldMap) *Message
}

// FormatterFunc adapts a function to the MessageFormatter interface
type FormatterFunc func(event Event, fields FieldMap) *Message

// Format calls f
func (f FormatterFunc) Format(event Event, fields FieldMap) *Message {
	return f(event, fields)
}

// NullFormatter suppresses every notification
var NullFormatter MessageFormatter = FormatterFunc(func(Event, FieldMap) *Message {
	return nil
})

// MessageSender delivers a finished message. Implementations own retry
// and timeout policy; the dispatcher calls Send at most once per event.
// Senders must be safe for concurrent use.
type MessageSender interface {
	Send(ctx context.Context, msg Message) error
}

// CustomizeFunc is the deployment-overridable step applied to a
// formatted message before delivery. It may return the message
// unchanged, a replacement, or nil to suppress delivery. Suppression is
// expressed only via nil, never via panicking.
type CustomizeFunc func(msg Message, event Event, fields FieldMap) *Message
