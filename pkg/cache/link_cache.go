package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"media-redirect/pkg/rule"
)

// Tier selects one of the two independent link stores.
type Tier string

const (
	TierL1 Tier = "L1"
	TierL2 Tier = "L2"
)

// FallbackMarker is cached instead of a link when the request must be served by the
// media server itself.
const FallbackMarker = "@root"

// ParseTier reads the cacheLevel argument; anything but L2 selects L1.
func ParseTier(s string) Tier {
	if strings.EqualFold(s, string(TierL2)) {
		return TierL2
	}
	return TierL1
}

// IsFallback reports whether a cached value means "serve the original".
func IsFallback(v string) bool {
	return strings.HasPrefix(v, "@")
}

type TTLs struct {
	L1 time.Duration
	L2 time.Duration
}

// LinkCache maps derived request keys to resolved links, per tier.
type LinkCache struct {
	store          Store
	ttls           TTLs
	sharedPrefixes []string
}

// NewLinkCache wires the link tiers over store. Links starting with one of
// sharedPrefixes are valid for every client and are stored without the user agent.
func NewLinkCache(store Store, ttls TTLs, sharedPrefixes []string) *LinkCache {
	return &LinkCache{
		store:          store,
		ttls:           ttls,
		sharedPrefixes: sharedPrefixes,
	}
}

// Key derives the cache key from expression, falling back to the request URI when the
// expression is unset or evaluates to nothing.
func Key(ctx *rule.Context, expression string) string {
	v := ctx.Eval(expression)
	if strings.Trim(v, ":") == "" {
		return ctx.URI
	}
	return v
}

func storeKey(tier Tier, key string) string {
	return fmt.Sprintf("link:%s:%s", tier, key)
}

// Get returns the link stored under key, or "" on a miss.
func (c *LinkCache) Get(ctx context.Context, tier Tier, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	v, err := c.store.Get(ctx, storeKey(tier, key))
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// Lookup tries key, then key:ua. It returns the hit value and the key it was found under.
func (c *LinkCache) Lookup(ctx context.Context, tier Tier, key, ua string) (string, string, error) {
	v, err := c.Get(ctx, tier, key)
	if err != nil || v != "" {
		return v, key, err
	}
	uaKey := key + ":" + ua
	v, err = c.Get(ctx, tier, uaKey)
	if err != nil || v == "" {
		return "", "", err
	}
	return v, uaKey, nil
}

// Put stores value under key. Empty keys or values are ignored and an unchanged value is
// not rewritten.
func (c *LinkCache) Put(ctx context.Context, tier Tier, key, value string) error {
	if key == "" || value == "" {
		return nil
	}
	sk := storeKey(tier, key)
	if prev, err := c.store.Get(ctx, sk); err == nil && prev == value {
		return nil
	}
	return c.store.Set(ctx, sk, value, c.ttl(tier))
}

// PutLink stores a resolved link under the plain key when it is shared between clients,
// otherwise under key:ua.
func (c *LinkCache) PutLink(ctx context.Context, tier Tier, key, ua, link string) error {
	return c.Put(ctx, tier, c.LinkKey(key, ua, link), link)
}

// LinkKey returns the key PutLink would store link under.
func (c *LinkCache) LinkKey(key, ua, link string) string {
	for _, p := range c.sharedPrefixes {
		if p != "" && strings.HasPrefix(link, p) {
			return key
		}
	}
	return key + ":" + ua
}

func (c *LinkCache) ttl(tier Tier) time.Duration {
	if tier == TierL2 {
		return c.ttls.L2
	}
	return c.ttls.L1
}

// Markers are short-lived per-device idempotency flags.
type Markers struct {
	store Store
	ttl   time.Duration
}

func NewMarkers(store Store, ttl time.Duration) *Markers {
	return &Markers{store: store, ttl: ttl}
}

// Mark sets the marker for id and reports whether it was newly set. An empty id
// cannot be deduplicated and is always reported as new.
func (m *Markers) Mark(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return true, nil
	}
	return m.store.SetNX(ctx, "idem:"+id, "1", m.ttl)
}
