package rule

import (
	"fmt"

	"github.com/spf13/cast"
)

// Action is the terminal classification of a request.
type Action string

const (
	ActionProxy     Action = "proxy"
	ActionRedirect  Action = "redirect"
	ActionTranscode Action = "transcode"
	ActionBlock     Action = "block"
)

// ParseAction reports whether s names a route action.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionProxy, ActionRedirect, ActionTranscode, ActionBlock:
		return a, true
	}
	return "", false
}

// value sources that refer to the path under evaluation rather than the request
const (
	SourceFilePath = "filePath"
	SourceAlistRes = "alistRes"

	// SourceRemoteAddr is dropped from the rule set of internal requests.
	SourceRemoteAddr = "r.variables.remote_addr"
)

// Rule is one condition: the value named by Source tested by a Matcher.
type Rule struct {
	Source  string
	Matcher Matcher
}

// Match evaluates the rule against the request and the candidate path.
func (r Rule) Match(ctx *Context, path string) bool {
	subject := path
	if r.Source != SourceFilePath && r.Source != SourceAlistRes {
		subject = ctx.Eval(r.Source)
	}
	return r.Matcher.Match(subject)
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s", r.Source, r.Matcher)
}

// Group holds rules sharing a group key; it fires only when every member matches.
type Group struct {
	Key   string
	Rules []Rule
}

func (g *Group) Match(ctx *Context, path string) bool {
	if len(g.Rules) == 0 {
		return false
	}
	for _, r := range g.Rules {
		if !r.Match(ctx, path) {
			return false
		}
	}
	return true
}

// Entry is one configured rule: its action, its optional group key and its condition.
// Legacy entries carry no action tag and always classify as proxy.
type Entry struct {
	Action   Action
	Tagged   bool
	GroupKey string
	Rule     Rule
}

func (e Entry) String() string {
	s := e.Rule.String()
	if e.GroupKey != "" {
		s = e.GroupKey + ": " + s
	}
	if e.Tagged {
		s = string(e.Action) + " " + s
	}
	return s
}

// ParseEntry decodes one rule tuple:
//
//	[source, op, pattern]                    legacy flat proxy rule
//	[groupKey, source, op, pattern]          legacy grouped proxy rule
//	[action, source, op, pattern]            flat rule tagged with action
//	[action, groupKey, source, op, pattern]  grouped rule tagged with action
func ParseEntry(raw []any) (Entry, error) {
	var (
		e      Entry
		fields []any
	)
	first := ""
	if len(raw) > 0 {
		first, _ = cast.ToStringE(raw[0])
	}
	action, tagged := ParseAction(first)

	switch {
	case len(raw) == 3 && !tagged:
		e.Action = ActionProxy
		fields = raw
	case len(raw) == 4 && !tagged:
		e.Action = ActionProxy
		e.GroupKey = first
		fields = raw[1:]
	case len(raw) == 4 && tagged:
		e.Action, e.Tagged = action, true
		fields = raw[1:]
	case len(raw) == 5 && tagged:
		e.Action, e.Tagged = action, true
		key, err := cast.ToStringE(raw[1])
		if err != nil || key == "" {
			return Entry{}, fmt.Errorf("rule %v: invalid group key", raw)
		}
		e.GroupKey = key
		fields = raw[2:]
	default:
		return Entry{}, fmt.Errorf("rule %v: unexpected shape with %d fields", raw, len(raw))
	}

	source, err := cast.ToStringE(fields[0])
	if err != nil || source == "" {
		return Entry{}, fmt.Errorf("rule %v: invalid source", raw)
	}
	op, err := ParseOperator(fields[1])
	if err != nil {
		return Entry{}, fmt.Errorf("rule %v: %w", raw, err)
	}
	patterns, err := parsePatterns(fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("rule %v: %w", raw, err)
	}
	m, err := NewMatcher(op, patterns...)
	if err != nil {
		return Entry{}, fmt.Errorf("rule %v: %w", raw, err)
	}
	e.Rule = Rule{Source: source, Matcher: m}
	return e, nil
}

// check is either a single rule or a group, evaluated in configuration order.
type check struct {
	rule  *Rule
	group *Group
}

func (c check) match(ctx *Context, path string) bool {
	if c.group != nil {
		return c.group.Match(ctx, path)
	}
	return c.rule.Match(ctx, path)
}

func (c check) String() string {
	if c.group != nil {
		return "group " + c.group.Key
	}
	return c.rule.String()
}

type actionChecks struct {
	action Action
	checks []check
}

// Set is an immutable, pre-grouped rule set.
type Set struct {
	entries     []Entry
	proxyFlat   []Rule
	proxyGroups []*Group
	actions     []actionChecks
}

// Parse decodes and groups raw rule tuples.
func Parse(raw [][]any) (*Set, error) {
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		e, err := ParseEntry(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return NewSet(entries), nil
}

// NewSet groups entries once so evaluation never inspects rule shapes.
func NewSet(entries []Entry) *Set {
	s := &Set{entries: entries}
	proxyGroups := map[string]*Group{}
	actionIndex := map[Action]int{}
	actionGroups := map[Action]map[string]*Group{}

	for _, e := range entries {
		if e.Action == ActionProxy {
			if e.GroupKey == "" {
				s.proxyFlat = append(s.proxyFlat, e.Rule)
				continue
			}
			g, ok := proxyGroups[e.GroupKey]
			if !ok {
				g = &Group{Key: e.GroupKey}
				proxyGroups[e.GroupKey] = g
				s.proxyGroups = append(s.proxyGroups, g)
			}
			g.Rules = append(g.Rules, e.Rule)
			continue
		}

		i, ok := actionIndex[e.Action]
		if !ok {
			i = len(s.actions)
			actionIndex[e.Action] = i
			s.actions = append(s.actions, actionChecks{action: e.Action})
			actionGroups[e.Action] = map[string]*Group{}
		}
		if e.GroupKey == "" {
			r := e.Rule
			s.actions[i].checks = append(s.actions[i].checks, check{rule: &r})
			continue
		}
		g, ok := actionGroups[e.Action][e.GroupKey]
		if !ok {
			g = &Group{Key: e.GroupKey}
			actionGroups[e.Action][e.GroupKey] = g
			s.actions[i].checks = append(s.actions[i].checks, check{group: g})
		}
		g.Rules = append(g.Rules, e.Rule)
	}
	return s
}

// Without returns a copy of the set with every rule reading source removed.
// Groups left without members disappear.
func (s *Set) Without(source string) *Set {
	kept := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Rule.Source == source || e.GroupKey == source {
			continue
		}
		kept = append(kept, e)
	}
	return NewSet(kept)
}

// Entries returns the configured rules in order.
func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Sources lists the value source of every rule in the set.
func (s *Set) Sources() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Rule.Source)
	}
	return out
}

func (s *Set) Len() int {
	return len(s.entries)
}
