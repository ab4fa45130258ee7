package rule

import (
	"fmt"
	"strings"
)

// Decision is a route action plus the rule that produced it.
type Decision struct {
	Action Action
	Reason string
}

// Decider classifies requests into route actions. It is immutable after construction.
type Decider struct {
	rules      *Set
	internal   *Set
	mountRoots []string
}

// NewDecider prepares the rule set used for internal requests once, up front.
func NewDecider(rules *Set, mountRoots []string) *Decider {
	if rules == nil {
		rules = NewSet(nil)
	}
	roots := make([]string, 0, len(mountRoots))
	for _, r := range mountRoots {
		if r != "" {
			roots = append(roots, r)
		}
	}
	return &Decider{
		rules:      rules,
		internal:   rules.Without(SourceRemoteAddr),
		mountRoots: roots,
	}
}

// Rules returns the rule set effective for the request.
func (d *Decider) Rules(ctx *Context) *Set {
	if ctx.IsInternal() {
		return d.internal
	}
	return d.rules
}

// Decide classifies a candidate path. isAlistRes marks a path that is already a
// storage backend link; notLocal marks strm items.
func (d *Decider) Decide(ctx *Context, path string, isAlistRes, notLocal bool) Decision {
	set := d.Rules(ctx)

	if reason, ok := d.proxyReason(set, ctx, path, isAlistRes, notLocal); ok {
		return Decision{Action: ActionProxy, Reason: reason}
	}

	if len(set.actions) == 0 && isAlistRes {
		return Decision{Action: ActionRedirect, Reason: "no action rules for storage link"}
	}

	for _, ac := range set.actions {
		for _, c := range ac.checks {
			if c.match(ctx, path) {
				return Decision{Action: ac.action, Reason: fmt.Sprintf("hit %s", c)}
			}
		}
	}
	return Decision{Action: ActionRedirect, Reason: "no rule matched"}
}

// IsProxy reports whether the request must be served by the media server itself.
func (d *Decider) IsProxy(ctx *Context, path string, isAlistRes, notLocal bool) bool {
	_, ok := d.proxyReason(d.Rules(ctx), ctx, path, isAlistRes, notLocal)
	return ok
}

func (d *Decider) proxyReason(set *Set, ctx *Context, path string, isAlistRes, notLocal bool) (string, bool) {
	if !isAlistRes && !notLocal && !d.underMountRoot(path) {
		return "path outside mount roots", true
	}
	for _, r := range set.proxyFlat {
		if r.Match(ctx, path) {
			return fmt.Sprintf("hit proxy %s", r), true
		}
	}
	for _, g := range set.proxyGroups {
		if g.Match(ctx, path) {
			return fmt.Sprintf("hit proxy group %s", g.Key), true
		}
	}
	return "", false
}

func (d *Decider) underMountRoot(path string) bool {
	for _, root := range d.mountRoots {
		if strings.HasPrefix(path, root) {
			return true
		}
	}
	return false
}
