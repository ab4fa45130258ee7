package rule

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	propertySeparator = "."
	groupSeparator    = ":"
)

// request argument names understood by the router
const (
	ArgInternal   = "internal"
	ArgCacheLevel = "cacheLevel"
)

// Context is the read-only view of a request that rules and cache keys are derived from.
type Context struct {
	URI       string
	Args      map[string]string
	Headers   http.Header
	Variables map[string]string
}

// NewContext builds a Context, keeping the first value of every query argument.
func NewContext(uri string, query url.Values, headers http.Header, variables map[string]string) *Context {
	args := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			args[k] = v[0]
		}
	}
	if headers == nil {
		headers = http.Header{}
	}
	if variables == nil {
		variables = map[string]string{}
	}
	return &Context{
		URI:       uri,
		Args:      args,
		Headers:   headers,
		Variables: variables,
	}
}

func (c *Context) Arg(name string) string {
	if c == nil {
		return ""
	}
	return c.Args[name]
}

func (c *Context) Header(name string) string {
	if c == nil {
		return ""
	}
	return c.Headers.Get(name)
}

// IsInternal reports whether the request was issued by this service itself.
func (c *Context) IsInternal() bool {
	return c.Arg(ArgInternal) == "1"
}

// DeviceID returns the client device id, checking the argument spellings used by
// Emby, Jellyfin and older TV clients.
func (c *Context) DeviceID() string {
	for _, k := range []string{"X-Emby-Device-Id", "DeviceId", "deviceId"} {
		if v := c.Arg(k); v != "" {
			return v
		}
	}
	return ""
}

// Eval evaluates expressions such as "r.args.MediaSourceId:r.headersIn.User-Agent".
// Groups are separated by ":" and joined back with it; unknown properties yield "".
func (c *Context) Eval(expression string) string {
	if strings.TrimSpace(expression) == "" {
		return ""
	}
	groups := strings.Split(expression, groupSeparator)
	values := make([]string, 0, len(groups))
	for _, g := range groups {
		if strings.TrimSpace(g) == "" {
			continue
		}
		values = append(values, c.lookup(strings.Split(g, propertySeparator)))
	}
	return strings.Join(values, groupSeparator)
}

// lookup resolves one dotted expression; parts[0] names the request and is skipped.
func (c *Context) lookup(parts []string) string {
	if c == nil || len(parts) < 2 {
		return ""
	}
	switch parts[1] {
	case "uri":
		if len(parts) == 2 {
			return c.URI
		}
	case "args":
		if len(parts) == 3 {
			return c.Args[parts[2]]
		}
	case "headersIn":
		if len(parts) == 3 {
			return c.Headers.Get(parts[2])
		}
	case "variables":
		if len(parts) == 3 {
			return c.Variables[parts[2]]
		}
	}
	return ""
}
