package rule

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// AuthSign asks for the link to be signed before it is probed.
const AuthSign = "sign"

// LastLinkRule selects strm links whose final location is resolved with a HEAD probe.
type LastLinkRule struct {
	Matcher         Matcher
	AuthType        string
	SignSecret      string
	SignExpireHours int
}

// ParseLastLinkRule decodes [op, pattern] or [op, pattern, "sign", "secret:expireHours"].
func ParseLastLinkRule(raw []any) (LastLinkRule, error) {
	if len(raw) != 2 && len(raw) != 4 {
		return LastLinkRule{}, fmt.Errorf("last link rule %v: expected 2 or 4 fields, got %d", raw, len(raw))
	}
	m, err := parseMatcher(raw[0], raw[1])
	if err != nil {
		return LastLinkRule{}, fmt.Errorf("last link rule %v: %w", raw, err)
	}
	r := LastLinkRule{Matcher: m}
	if len(raw) == 2 {
		return r, nil
	}

	r.AuthType = cast.ToString(raw[2])
	if r.AuthType != AuthSign {
		return LastLinkRule{}, fmt.Errorf("last link rule %v: unsupported auth type %q", raw, r.AuthType)
	}
	info := cast.ToString(raw[3])
	secret, hours := info, "0"
	if i := strings.LastIndex(info, ":"); i != -1 {
		secret, hours = info[:i], info[i+1:]
	}
	if secret == "" {
		return LastLinkRule{}, fmt.Errorf("last link rule %v: sign secret is required", raw)
	}
	r.SignSecret = secret
	r.SignExpireHours, err = cast.ToIntE(hours)
	if err != nil {
		return LastLinkRule{}, fmt.Errorf("last link rule %v: invalid expire hours: %w", raw, err)
	}
	return r, nil
}

// FindLastLinkRule returns the first rule matching link.
func FindLastLinkRule(rules []LastLinkRule, link string) (LastLinkRule, bool) {
	for _, r := range rules {
		if r.Matcher.Match(link) {
			return r, true
		}
	}
	return LastLinkRule{}, false
}

// RewriteRule points storage links matching Matcher at a client reachable address.
type RewriteRule struct {
	Matcher    Matcher
	PublicAddr string
}

// ParseRewriteRule decodes [op, pattern, publicAddr].
func ParseRewriteRule(raw []any) (RewriteRule, error) {
	if len(raw) != 3 {
		return RewriteRule{}, fmt.Errorf("rewrite rule %v: expected 3 fields, got %d", raw, len(raw))
	}
	m, err := parseMatcher(raw[0], raw[1])
	if err != nil {
		return RewriteRule{}, fmt.Errorf("rewrite rule %v: %w", raw, err)
	}
	addr := strings.TrimSuffix(cast.ToString(raw[2]), "/")
	if addr == "" {
		return RewriteRule{}, fmt.Errorf("rewrite rule %v: public address is required", raw)
	}
	return RewriteRule{Matcher: m, PublicAddr: addr}, nil
}

// FindRewriteRule returns the first rule matching link, in configuration order.
func FindRewriteRule(rules []RewriteRule, link string) (RewriteRule, bool) {
	for _, r := range rules {
		if r.Matcher.Match(link) {
			return r, true
		}
	}
	return RewriteRule{}, false
}

func parseMatcher(op, pattern any) (Matcher, error) {
	o, err := ParseOperator(op)
	if err != nil {
		return Matcher{}, err
	}
	patterns, err := parsePatterns(pattern)
	if err != nil {
		return Matcher{}, err
	}
	return NewMatcher(o, patterns...)
}
