package rule

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw [][]any) *Set {
	t.Helper()
	set, err := Parse(raw)
	require.NoError(t, err)
	return set
}

func requestContext(query url.Values, remoteAddr string) *Context {
	return NewContext("/emby/videos/1/stream.mkv", query, http.Header{}, map[string]string{
		"remote_addr": remoteAddr,
	})
}

func TestDeciderDecide(t *testing.T) {
	mountRoots := []string{"/mnt"}
	webClient := url.Values{"X-Emby-Client": {"Emby Web"}, "X-Emby-Device-Name": {"Chrome"}}

	type args struct {
		raw        [][]any
		query      url.Values
		remoteAddr string
		path       string
		isAlistRes bool
		notLocal   bool
	}
	tests := []struct {
		name string
		args args
		want Action
	}{
		{
			name: "legacy contains rule proxies",
			args: args{
				raw:  [][]any{{"filePath", 2, "/emby/"}},
				path: "/mnt/media/emby/movie.mkv",
			},
			want: ActionProxy,
		},
		{
			name: "path outside mount roots proxies",
			args: args{
				path: "/data/movie.mkv",
			},
			want: ActionProxy,
		},
		{
			name: "strm path outside mount roots is not proxied by the shortcut",
			args: args{
				path:     "/data/movie.strm",
				notLocal: true,
			},
			want: ActionRedirect,
		},
		{
			name: "no rules and storage link redirects",
			args: args{
				path:       "http://alist/d/movie.mkv",
				isAlistRes: true,
			},
			want: ActionRedirect,
		},
		{
			name: "no rule matches redirects",
			args: args{
				raw:  [][]any{{"block", "filePath", 0, "/mnt/private"}},
				path: "/mnt/public/movie.mkv",
			},
			want: ActionRedirect,
		},
		{
			name: "tagged block rule",
			args: args{
				raw:  [][]any{{"block", "filePath", 0, "/mnt/private"}},
				path: "/mnt/private/movie.mkv",
			},
			want: ActionBlock,
		},
		{
			name: "tagged proxy rule wins over other actions",
			args: args{
				raw: [][]any{
					{"block", "filePath", 0, "/mnt"},
					{"proxy", "filePath", 1, ".mkv"},
				},
				path: "/mnt/movie.mkv",
			},
			want: ActionProxy,
		},
		{
			name: "first action in configuration order wins",
			args: args{
				raw: [][]any{
					{"transcode", "filePath", 1, ".mkv"},
					{"block", "filePath", 0, "/mnt"},
				},
				path: "/mnt/movie.mkv",
			},
			want: ActionTranscode,
		},
		{
			name: "legacy group with all members matching proxies",
			args: args{
				raw: [][]any{
					{"115-alist", "r.args.X-Emby-Client", 0, []any{"Emby Web", "Infuse"}},
					{"115-alist", "filePath", 0, "/mnt/115"},
				},
				query: webClient,
				path:  "/mnt/115/movie.mkv",
			},
			want: ActionProxy,
		},
		{
			name: "legacy group with one member failing does not fire",
			args: args{
				raw: [][]any{
					{"115-alist", "r.args.X-Emby-Client", 0, []any{"Emby Web", "Infuse"}},
					{"115-alist", "filePath", 0, "/mnt/115"},
				},
				query: webClient,
				path:  "/mnt/local/movie.mkv",
			},
			want: ActionRedirect,
		},
		{
			name: "tagged group with all members matching",
			args: args{
				raw: [][]any{
					{"transcode", "web", "r.args.X-Emby-Client", 0, "Emby Web"},
					{"transcode", "web", "r.args.X-Emby-Device-Name", 2, "Chrome"},
					{"transcode", "web", "filePath", 1, ".mkv"},
				},
				query: webClient,
				path:  "/mnt/movie.mkv",
			},
			want: ActionTranscode,
		},
		{
			name: "tagged group with two of three members matching",
			args: args{
				raw: [][]any{
					{"transcode", "web", "r.args.X-Emby-Client", 0, "Emby Web"},
					{"transcode", "web", "r.args.X-Emby-Device-Name", 2, "Chrome"},
					{"transcode", "web", "filePath", 1, ".mp4"},
				},
				query: webClient,
				path:  "/mnt/movie.mkv",
			},
			want: ActionRedirect,
		},
		{
			name: "remote address rule applies to client requests",
			args: args{
				raw:        [][]any{{"r.variables.remote_addr", 0, "192.168."}},
				remoteAddr: "192.168.1.10",
				path:       "/mnt/movie.mkv",
			},
			want: ActionProxy,
		},
		{
			name: "remote address rule is ignored for internal requests",
			args: args{
				raw:        [][]any{{"r.variables.remote_addr", 0, "192.168."}},
				query:      url.Values{"internal": {"1"}},
				remoteAddr: "192.168.1.10",
				path:       "/mnt/movie.mkv",
			},
			want: ActionRedirect,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecider(mustParse(t, tt.args.raw), mountRoots)
			ctx := requestContext(tt.args.query, tt.args.remoteAddr)
			got := d.Decide(ctx, tt.args.path, tt.args.isAlistRes, tt.args.notLocal)
			assert.Equal(t, tt.want, got.Action, "Decide() = %v (%s), want %v", got.Action, got.Reason, tt.want)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestDeciderEmptyMountRootsProxyLocalPaths(t *testing.T) {
	d := NewDecider(nil, nil)
	ctx := requestContext(nil, "")
	assert.Equal(t, ActionProxy, d.Decide(ctx, "/mnt/movie.mkv", false, false).Action)
	assert.Equal(t, ActionRedirect, d.Decide(ctx, "http://alist/d/movie.mkv", true, false).Action)
}

func TestDeciderIsTotal(t *testing.T) {
	set := mustParse(t, [][]any{
		{"filePath", 2, "/proxy/"},
		{"block", "filePath", 2, "/block/"},
		{"transcode", "filePath", 2, "/transcode/"},
		{"redirect", "filePath", 2, "/redirect/"},
	})
	d := NewDecider(set, []string{"/mnt"})
	valid := map[Action]bool{ActionProxy: true, ActionRedirect: true, ActionTranscode: true, ActionBlock: true}
	paths := []string{"/mnt/proxy/a", "/mnt/block/a", "/mnt/transcode/a", "/mnt/redirect/a", "/mnt/other/a", "/x", ""}
	for _, p := range paths {
		for _, isAlistRes := range []bool{true, false} {
			for _, notLocal := range []bool{true, false} {
				got := d.Decide(requestContext(nil, ""), p, isAlistRes, notLocal)
				assert.True(t, valid[got.Action], "path %q produced %q", p, got.Action)
			}
		}
	}
}

func TestInternalRulesExcludeRemoteAddress(t *testing.T) {
	set := mustParse(t, [][]any{
		{"r.variables.remote_addr", 0, "10."},
		{"lan", "r.variables.remote_addr", 0, "192.168."},
		{"lan", "filePath", 0, "/mnt"},
		{"block", "r.variables.remote_addr", 0, "172.16."},
		{"block", "filePath", 2, "/private/"},
	})
	d := NewDecider(set, []string{"/mnt"})

	internal := d.Rules(requestContext(url.Values{"internal": {"1"}}, ""))
	assert.NotContains(t, internal.Sources(), SourceRemoteAddr)
	assert.Equal(t, 2, internal.Len())

	external := d.Rules(requestContext(nil, ""))
	assert.Contains(t, external.Sources(), SourceRemoteAddr)
	assert.Equal(t, 5, external.Len())
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name      string
		raw       []any
		want      Entry
		wantError bool
	}{
		{
			name: "legacy flat",
			raw:  []any{"filePath", 0, "/mnt"},
			want: Entry{Action: ActionProxy},
		},
		{
			name: "legacy group",
			raw:  []any{"g1", "filePath", 0, "/mnt"},
			want: Entry{Action: ActionProxy, GroupKey: "g1"},
		},
		{
			name: "tagged flat",
			raw:  []any{"block", "filePath", 0, "/mnt"},
			want: Entry{Action: ActionBlock, Tagged: true},
		},
		{
			name: "tagged group",
			raw:  []any{"transcode", "g1", "filePath", 0, "/mnt"},
			want: Entry{Action: ActionTranscode, Tagged: true, GroupKey: "g1"},
		},
		{
			name:      "untagged five fields",
			raw:       []any{"g0", "g1", "filePath", 0, "/mnt"},
			wantError: true,
		},
		{
			name:      "too short",
			raw:       []any{"filePath", 0},
			wantError: true,
		},
		{
			name:      "unknown operator",
			raw:       []any{"filePath", 9, "/mnt"},
			wantError: true,
		},
		{
			name:      "bad regex",
			raw:       []any{"filePath", 3, "a("},
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntry(tt.raw)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Action, got.Action)
			assert.Equal(t, tt.want.Tagged, got.Tagged)
			assert.Equal(t, tt.want.GroupKey, got.GroupKey)
			assert.Equal(t, "filePath", got.Rule.Source)
		})
	}
}
