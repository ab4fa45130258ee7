package model

import (
	"media-redirect/pkg/mediaserver"
	"media-redirect/pkg/rule"
)

// Outcome is one of the three terminal answers to a playback request.
type Outcome string

const (
	OutcomeRedirect Outcome = "redirect"
	OutcomeFallback Outcome = "fallback"
	OutcomeBlock    Outcome = "block"
)

// ResolveRequest is a stream, download or sync request to be routed.
type ResolveRequest struct {
	RequestID string
	Ctx       *rule.Context
	Item      mediaserver.ItemQuery
	UserAgent string
}

// Resolution is the routing answer. URL is only set for redirects.
type Resolution struct {
	Outcome Outcome `json:"outcome"`
	URL     string  `json:"url,omitempty"`
	Reason  string  `json:"reason"`
	Cached  bool    `json:"cached"`
}

// PlaybackRequest is a PlaybackInfo call whose response gets rewritten.
type PlaybackRequest struct {
	RequestID string
	Ctx       *rule.Context
	// Origin is scheme://host as the client addressed this service.
	Origin    string
	UserAgent string
	// APIKey is used when the client sent neither api_key nor X-Emby-Token.
	APIKey string
}
