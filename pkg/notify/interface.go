package notify

import (
	"context"
)

// Message is a free-text notice about one routing outcome
type Message struct {
	DeviceID string
	Title    string
	Text     string
	// Detail is a longer form of Text carrying the links involved
	Detail string
}

// Provider delivers messages to one channel
type Provider interface {
	// Name identifies the channel in logs
	Name() string

	// Send delivers the message; failures are reported, never retried
	Send(ctx context.Context, msg Message) error
}
