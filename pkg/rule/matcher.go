package rule

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// Operator is a string comparison applied by a Matcher.
type Operator int

const (
	OpPrefix Operator = iota
	OpSuffix
	OpContains
	OpRegex
)

func (o Operator) String() string {
	switch o {
	case OpPrefix:
		return "prefix"
	case OpSuffix:
		return "suffix"
	case OpContains:
		return "contains"
	case OpRegex:
		return "regex"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// ParseOperator accepts the numeric operator codes used in rule documents.
func ParseOperator(v any) (Operator, error) {
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid operator %v: %w", v, err)
	}
	op := Operator(n)
	if op < OpPrefix || op > OpRegex {
		return 0, fmt.Errorf("unknown operator %d", n)
	}
	return op, nil
}

// Matcher tests a subject against alternative patterns, any of which may match.
type Matcher struct {
	Op       Operator
	Patterns []string
	regexps  []*regexp.Regexp
}

// NewMatcher builds a Matcher, compiling regex patterns up front.
func NewMatcher(op Operator, patterns ...string) (Matcher, error) {
	if len(patterns) == 0 {
		return Matcher{}, fmt.Errorf("matcher needs at least one pattern")
	}
	m := Matcher{
		Op:       op,
		Patterns: patterns,
	}
	if op == OpRegex {
		m.regexps = make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			re, err := CompilePattern(p)
			if err != nil {
				return Matcher{}, fmt.Errorf("invalid regex %q: %w", p, err)
			}
			m.regexps = append(m.regexps, re)
		}
	}
	return m, nil
}

// Match reports whether any pattern matches. An empty subject never matches.
func (m Matcher) Match(subject string) bool {
	if subject == "" {
		return false
	}
	for i, p := range m.Patterns {
		switch m.Op {
		case OpPrefix:
			if strings.HasPrefix(subject, p) {
				return true
			}
		case OpSuffix:
			if strings.HasSuffix(subject, p) {
				return true
			}
		case OpContains:
			if strings.Contains(subject, p) {
				return true
			}
		case OpRegex:
			if i < len(m.regexps) && m.regexps[i].MatchString(subject) {
				return true
			}
		}
	}
	return false
}

func (m Matcher) String() string {
	if len(m.Patterns) == 1 {
		return fmt.Sprintf("%s %q", m.Op, m.Patterns[0])
	}
	return fmt.Sprintf("%s %q", m.Op, m.Patterns)
}

// Matches evaluates a single comparison without a precompiled Matcher.
// An invalid regular expression never matches.
func Matches(op Operator, subject string, patterns ...string) bool {
	m, err := NewMatcher(op, patterns...)
	if err != nil {
		return false
	}
	return m.Match(subject)
}

// CompilePattern compiles a regular expression. The /body/flags literal form is
// accepted; i, m and s map to Go flags while g, u and y are ignored.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	body, flags, ok := SplitRegexLiteral(pattern)
	if !ok {
		return regexp.Compile(pattern)
	}
	var goFlags string
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(goFlags, f) {
				goFlags += string(f)
			}
		}
	}
	if goFlags != "" {
		body = "(?" + goFlags + ")" + body
	}
	return regexp.Compile(body)
}

// SplitRegexLiteral splits "/body/flags" into its parts.
func SplitRegexLiteral(s string) (body, flags string, ok bool) {
	if len(s) < 2 || s[0] != '/' {
		return "", "", false
	}
	i := strings.LastIndex(s, "/")
	if i <= 0 {
		return "", "", false
	}
	flags = s[i+1:]
	for _, f := range flags {
		if !strings.ContainsRune("gimsuy", f) {
			return "", "", false
		}
	}
	return s[1:i], flags, true
}

// parsePatterns accepts a single string or a list of strings.
func parsePatterns(v any) ([]string, error) {
	switch p := v.(type) {
	case string:
		return []string{p}, nil
	case []string:
		return p, nil
	case []any:
		out := make([]string, 0, len(p))
		for _, item := range p {
			s, err := cast.ToStringE(item)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %v: %w", item, err)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %v: %w", v, err)
		}
		return []string{s}, nil
	}
}
