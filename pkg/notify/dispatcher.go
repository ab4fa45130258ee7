package notify

import (
	"context"
	"errors"
	"fmt"

	"media-redirect/pkg/cache"
	"media-redirect/pkg/logger"
	"media-redirect/pkg/worker"

	"golang.org/x/time/rate"
)

// Dispatcher fans a message out to every provider on the worker pool, at most once
// per device within the marker window and within the global rate limit.
type Dispatcher struct {
	providers []Provider
	limiter   *rate.Limiter
	markers   *cache.Markers
	pool      *worker.Pool
}

func NewDispatcher(providers []Provider, limiter *rate.Limiter, markers *cache.Markers, pool *worker.Pool) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		limiter:   limiter,
		markers:   markers,
		pool:      pool,
	}
}

// Enabled reports whether any provider would receive messages.
func (d *Dispatcher) Enabled() bool {
	for _, p := range d.providers {
		if _, noop := p.(*NoOpProvider); !noop {
			return true
		}
	}
	return false
}

// Notify schedules delivery and returns immediately.
func (d *Dispatcher) Notify(msg Message) {
	if !d.Enabled() {
		return
	}
	d.pool.Submit("notify", func(ctx context.Context) error {
		return d.deliver(ctx, msg)
	})
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) error {
	// a message the limiter would drop must not mark the device
	if d.exhausted() {
		logger.Debug("notification dropped by rate limit")
		return nil
	}
	fresh, err := d.markers.Mark(ctx, msg.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to set notification marker: %w", err)
	}
	if !fresh {
		logger.Debugf("notification for device %s suppressed by marker", msg.DeviceID)
		return nil
	}
	if d.limiter != nil && !d.limiter.Allow() {
		logger.Debug("notification dropped by rate limit")
		return nil
	}

	var errs []error
	for _, p := range d.providers {
		if err := p.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) exhausted() bool {
	return d.limiter != nil && d.limiter.Limit() != rate.Inf && d.limiter.Tokens() < 1
}
