package cache

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"media-redirect/pkg/redis"
	"media-redirect/pkg/rule"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sharedCDN = "https://cdnfhnfile.115.com"

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	rs := NewRedisStore(client)
	t.Cleanup(func() { _ = rs.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(16),
		"redis":  rs,
	}
}

func TestLinkCacheRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			c := NewLinkCache(store, TTLs{L1: time.Minute, L2: time.Minute}, []string{sharedCDN})
			ctx := context.Background()

			require.NoError(t, c.Put(ctx, TierL1, "k", "http://cdn/a"))
			v, err := c.Get(ctx, TierL1, "k")
			require.NoError(t, err)
			assert.Equal(t, "http://cdn/a", v)

			v, err = c.Get(ctx, TierL2, "k")
			require.NoError(t, err)
			assert.Empty(t, v, "tiers are independent")

			v, hitKey, err := c.Lookup(ctx, TierL1, "missing", "Infuse")
			require.NoError(t, err)
			assert.Empty(t, v)
			assert.Empty(t, hitKey)
		})
	}
}

func TestLinkCachePutIgnoresEmpty(t *testing.T) {
	store := NewMemoryStore(16)
	c := NewLinkCache(store, TTLs{L1: time.Minute}, nil)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, TierL1, "", "http://cdn/a"))
	require.NoError(t, c.Put(ctx, TierL1, "k", ""))
	assert.Equal(t, 0, store.Len())
}

func TestLinkCacheLookupFallsBackToUserAgentKey(t *testing.T) {
	c := NewLinkCache(NewMemoryStore(16), TTLs{L1: time.Minute}, []string{sharedCDN})
	ctx := context.Background()

	require.NoError(t, c.PutLink(ctx, TierL1, "k", "Infuse", "http://alist/d/a.mkv?sign=x"))
	require.NoError(t, c.PutLink(ctx, TierL1, "s", "Infuse", sharedCDN+"/a.mkv"))

	v, hitKey, err := c.Lookup(ctx, TierL1, "k", "Infuse")
	require.NoError(t, err)
	assert.Equal(t, "http://alist/d/a.mkv?sign=x", v)
	assert.Equal(t, "k:Infuse", hitKey)

	v, _, err = c.Lookup(ctx, TierL1, "k", "Emby Web")
	require.NoError(t, err)
	assert.Empty(t, v, "per-agent links are not shared")

	v, hitKey, err = c.Lookup(ctx, TierL1, "s", "Emby Web")
	require.NoError(t, err)
	assert.Equal(t, sharedCDN+"/a.mkv", v)
	assert.Equal(t, "s", hitKey)
}

func TestLinkCachePutSkipsUnchangedValue(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store := NewMemoryStore(16)
	store.now = func() time.Time { return now }
	c := NewLinkCache(store, TTLs{L1: time.Minute}, nil)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, TierL1, "k", "v"))
	now = now.Add(50 * time.Second)
	require.NoError(t, c.Put(ctx, TierL1, "k", "v"))

	// an unchanged write does not extend the entry
	now = now.Add(20 * time.Second)
	v, err := c.Get(ctx, TierL1, "k")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestKey(t *testing.T) {
	q := url.Values{"MediaSourceId": {"ms1"}}
	h := http.Header{}
	h.Set("User-Agent", "Infuse")
	ctx := rule.NewContext("/emby/videos/1/stream.mkv?MediaSourceId=ms1", q, h, nil)

	tests := []struct {
		name string
		expr string
		want string
	}{
		{name: "unset expression", expr: "", want: "/emby/videos/1/stream.mkv?MediaSourceId=ms1"},
		{name: "single arg", expr: "r.args.MediaSourceId", want: "ms1"},
		{name: "joined", expr: "r.args.MediaSourceId:r.headersIn.User-Agent", want: "ms1:Infuse"},
		{name: "all empty", expr: "r.args.Missing:r.args.Other", want: "/emby/videos/1/stream.mkv?MediaSourceId=ms1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(ctx, tt.expr))
		})
	}
}

func TestParseTier(t *testing.T) {
	assert.Equal(t, TierL1, ParseTier(""))
	assert.Equal(t, TierL2, ParseTier("L2"))
	assert.Equal(t, TierL2, ParseTier("l2"))
	assert.Equal(t, TierL1, ParseTier("L3"))
	assert.True(t, IsFallback(FallbackMarker))
	assert.False(t, IsFallback("http://cdn/a"))
}

func TestMarkers(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			m := NewMarkers(store, 30*time.Second)
			ctx := context.Background()

			first, err := m.Mark(ctx, "device-1")
			require.NoError(t, err)
			assert.True(t, first)

			again, err := m.Mark(ctx, "device-1")
			require.NoError(t, err)
			assert.False(t, again)

			anon, err := m.Mark(ctx, "")
			require.NoError(t, err)
			assert.True(t, anon)
		})
	}
}
