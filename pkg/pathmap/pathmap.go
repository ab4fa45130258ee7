// Package pathmap translates media server file paths into storage backend paths.
package pathmap

import (
	"fmt"
	"regexp"
	"strings"

	"media-redirect/pkg/rule"
	"media-redirect/pkg/utils"

	"github.com/spf13/cast"
)

// Transform is the string operation an Entry applies.
type Transform int

const (
	TransformReplace Transform = iota
	TransformPrepend
	TransformAppend
)

// Locality restricts an Entry to a kind of item.
type Locality int

const (
	// LocalityLocal applies to regular media files only.
	LocalityLocal Locality = iota
	// LocalityStrmPath applies to strm items whose content is a filesystem path.
	LocalityStrmPath
	// LocalityStrmRemote applies to strm items whose content is a link.
	LocalityStrmRemote
	// LocalityAlways applies to every item.
	LocalityAlways
)

var jsGroupRef = regexp.MustCompile(`\$(\d+)`)

// Entry is one mapping step.
type Entry struct {
	Transform Transform
	Locality  Locality
	Search    string
	Replace   string

	re     *regexp.Regexp
	global bool
}

// NewEntry builds an Entry. A replace search value written as /body/flags with at
// least one flag is a regular expression; "g" replaces every match.
func NewEntry(t Transform, l Locality, search, replace string) (Entry, error) {
	if t < TransformReplace || t > TransformAppend {
		return Entry{}, fmt.Errorf("unknown transform %d", t)
	}
	if l < LocalityLocal || l > LocalityAlways {
		return Entry{}, fmt.Errorf("unknown locality %d", l)
	}
	e := Entry{Transform: t, Locality: l, Search: search, Replace: replace}
	if t != TransformReplace {
		return e, nil
	}
	if search == "" {
		return Entry{}, fmt.Errorf("replace entry needs a search value")
	}
	if _, flags, ok := rule.SplitRegexLiteral(search); ok && flags != "" {
		re, err := rule.CompilePattern(search)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid regex %q: %w", search, err)
		}
		e.re = re
		e.global = strings.Contains(flags, "g")
		e.Replace = jsGroupRef.ReplaceAllString(replace, "$${$1}")
	}
	return e, nil
}

func (e Entry) applies(notLocal, isRemote bool) bool {
	switch e.Locality {
	case LocalityLocal:
		return !notLocal
	case LocalityStrmPath:
		return notLocal && !isRemote
	case LocalityStrmRemote:
		return notLocal && isRemote
	default:
		return true
	}
}

func (e Entry) apply(s string) string {
	switch e.Transform {
	case TransformPrepend:
		return e.Search + s
	case TransformAppend:
		return s + e.Search
	}
	if e.re == nil {
		return strings.Replace(s, e.Search, e.Replace, 1)
	}
	if e.global {
		return e.re.ReplaceAllString(s, e.Replace)
	}
	loc := e.re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	dst := e.re.ExpandString(nil, e.Replace, s, loc)
	return s[:loc[0]] + string(dst) + s[loc[1]:]
}

// Mapper applies entries in order. It is immutable after construction.
type Mapper struct {
	entries []Entry
}

// New builds a Mapper. Every mount root becomes a leading strip entry for local items.
func New(mountRoots []string, entries []Entry) *Mapper {
	all := make([]Entry, 0, len(mountRoots)+len(entries))
	for _, root := range mountRoots {
		if root == "" {
			continue
		}
		all = append(all, Entry{
			Transform: TransformReplace,
			Locality:  LocalityLocal,
			Search:    root,
		})
	}
	all = append(all, entries...)
	return &Mapper{entries: all}
}

// Parse decodes [transform, locality, search, replace] tuples; replace may be omitted
// for prepend and append.
func Parse(mountRoots []string, raw [][]any) (*Mapper, error) {
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		if len(r) != 3 && len(r) != 4 {
			return nil, fmt.Errorf("path mapping %v: expected 3 or 4 fields, got %d", r, len(r))
		}
		t, err := cast.ToIntE(r[0])
		if err != nil {
			return nil, fmt.Errorf("path mapping %v: invalid transform: %w", r, err)
		}
		l, err := cast.ToIntE(r[1])
		if err != nil {
			return nil, fmt.Errorf("path mapping %v: invalid locality: %w", r, err)
		}
		search := cast.ToString(r[2])
		replace := ""
		if len(r) == 4 {
			replace = cast.ToString(r[3])
		}
		e, err := NewEntry(Transform(t), Locality(l), search, replace)
		if err != nil {
			return nil, fmt.Errorf("path mapping %v: %w", r, err)
		}
		entries = append(entries, e)
	}
	return New(mountRoots, entries), nil
}

// Map translates path. Remoteness is judged on the unmapped path.
func (m *Mapper) Map(path string, notLocal bool) string {
	isRemote := utils.IsRemotePath(path)
	out := path
	for _, e := range m.entries {
		if !e.applies(notLocal, isRemote) {
			continue
		}
		out = e.apply(out)
	}
	return out
}

// Entries returns the effective pipeline including the mount root entries.
func (m *Mapper) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
