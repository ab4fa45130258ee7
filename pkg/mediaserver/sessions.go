package mediaserver

import (
	"context"
	"net/url"
)

// Session is an active client connection on the media server.
type Session struct {
	ID                    string `json:"Id"`
	DeviceID              string `json:"DeviceId"`
	Client                string `json:"Client"`
	SupportsRemoteControl bool   `json:"SupportsRemoteControl"`
}

// Sessions lists the sessions of one device.
func (c *Client) Sessions(ctx context.Context, deviceID string) ([]Session, error) {
	query := url.Values{
		"DeviceId": {deviceID},
		"api_key":  {c.apiKey},
	}
	var sessions []Session
	if err := c.getJSON(ctx, c.endpoint("/Sessions", query), &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SendMessage shows a message on the client behind sessionID.
func (c *Client) SendMessage(ctx context.Context, sessionID, header, text string, timeoutMs int) error {
	query := url.Values{"api_key": {c.apiKey}}
	body := map[string]any{
		"Header":    header,
		"Text":      text,
		"TimeoutMs": timeoutMs,
	}
	return c.postJSON(ctx, c.endpoint("/Sessions/"+url.PathEscape(sessionID)+"/Message", query), body)
}

// NotifyAdmin posts an entry to the administrator notification feed.
func (c *Client) NotifyAdmin(ctx context.Context, name, description string) error {
	query := url.Values{"api_key": {c.apiKey}}
	body := map[string]string{
		"Name":        name,
		"Description": description,
	}
	return c.postJSON(ctx, c.endpoint("/Notifications/Admin", query), body)
}
