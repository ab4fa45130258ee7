package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// IsStrmPath reports whether the path points at a strm pointer file.
func IsStrmPath(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".strm")
}

// IsRemotePath reports whether the path is a link rather than a filesystem path.
func IsRemotePath(path string) bool {
	if path == "" {
		return false
	}
	return !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "\\")
}

// FileNameByPath returns the last element of a slash or backslash separated path.
func FileNameByPath(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i != -1 {
		return path[i+1:]
	}
	return path
}

// AppendURLArg adds key=value to the query of u unless the key is already present.
func AppendURLArg(u, key, value string) string {
	if HasURLArg(u, key) {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}

// HasURLArg reports whether the query of u carries the key.
func HasURLArg(u, key string) bool {
	i := strings.Index(u, "?")
	if i == -1 {
		return false
	}
	query := u[i+1:]
	if j := strings.Index(query, "#"); j != -1 {
		query = query[:j]
	}
	for _, pair := range strings.Split(query, "&") {
		name, _, _ := strings.Cut(pair, "=")
		if name == key {
			return true
		}
	}
	return false
}

const uriReserved = ";,/?:@&=+$#-_.!~*'()"

// EncodeURI percent-encodes s, leaving URI reserved characters and unreserved marks
// intact.
func EncodeURI(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
			strings.IndexByte(uriReserved, c) != -1 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}
