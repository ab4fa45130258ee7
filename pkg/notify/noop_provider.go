package notify

import (
	"context"
)

// NoOpProvider swallows every message. It stands in when no channel is enabled.
type NoOpProvider struct{}

func NewNoOpProvider() *NoOpProvider {
	return &NoOpProvider{}
}

func (n *NoOpProvider) Name() string { return "noop" }

func (n *NoOpProvider) Send(ctx context.Context, msg Message) error {
	return nil
}
