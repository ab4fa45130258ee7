package notify

import (
	"context"
	"fmt"

	"media-redirect/pkg/logger"
	"media-redirect/pkg/mediaserver"
)

// AdminNotifier posts to the media server's admin notification feed
type AdminNotifier interface {
	NotifyAdmin(ctx context.Context, name, description string) error
}

// SessionMessenger shows messages on a client device
type SessionMessenger interface {
	Sessions(ctx context.Context, deviceID string) ([]mediaserver.Session, error)
	SendMessage(ctx context.Context, sessionID, header, text string, timeoutMs int) error
}

// AdminProvider writes to the media server admin notifications
type AdminProvider struct {
	client        AdminNotifier
	name          string
	includeDetail bool
}

func NewAdminProvider(client AdminNotifier, name string, includeDetail bool) *AdminProvider {
	return &AdminProvider{client: client, name: name, includeDetail: includeDetail}
}

func (a *AdminProvider) Name() string { return "admin" }

func (a *AdminProvider) Send(ctx context.Context, msg Message) error {
	name := a.name
	if msg.Title != "" {
		name = msg.Title
	}
	text := msg.Text
	if a.includeDetail && msg.Detail != "" {
		text = msg.Detail
	}
	return a.client.NotifyAdmin(ctx, name, text)
}

// DeviceProvider pops a message up on the device that made the request
type DeviceProvider struct {
	client    SessionMessenger
	header    string
	timeoutMs int
}

func NewDeviceProvider(client SessionMessenger, header string, timeoutMs int) *DeviceProvider {
	return &DeviceProvider{client: client, header: header, timeoutMs: timeoutMs}
}

func (d *DeviceProvider) Name() string { return "device" }

// Send targets the first remote-controllable session of the device.
func (d *DeviceProvider) Send(ctx context.Context, msg Message) error {
	if msg.DeviceID == "" {
		logger.Debug("device message skipped, no device id")
		return nil
	}

	sessions, err := d.client.Sessions(ctx, msg.DeviceID)
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}
	for _, s := range sessions {
		if s.SupportsRemoteControl {
			return d.client.SendMessage(ctx, s.ID, d.header, msg.Text, d.timeoutMs)
		}
	}

	logger.Debugf("device message skipped, no remote controllable session for %s", msg.DeviceID)
	return nil
}
