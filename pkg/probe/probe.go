package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"media-redirect/pkg/logger"
	"media-redirect/pkg/rule"
	"media-redirect/pkg/utils"
)

// maxBody bounds what is drained from a probe response.
const maxBody = 1024

// Result is the part of a HEAD response the router cares about.
type Result struct {
	Status      int
	Location    string
	ContentType string
}

// IsRedirect reports a 3xx status, or a 403 that carries a Location anyway.
func (r *Result) IsRedirect() bool {
	return (r.Status > 300 && r.Status < 309) || r.Status == http.StatusForbidden
}

// Prober issues HEAD requests without following redirects.
type Prober struct {
	client *http.Client
}

// New wraps client, which must not follow redirects itself.
func New(client *http.Client) *Prober {
	return &Prober{client: client}
}

// Head probes link with the caller's user agent.
func (p *Prober) Head(ctx context.Context, link, ua string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	req.Header.Set("User-Agent", ua)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", req.URL.Redacted(), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	return &Result{
		Status:      resp.StatusCode,
		Location:    resp.Header.Get("Location"),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// LastLink follows one hop of link and returns where it points.
func (p *Prober) LastLink(ctx context.Context, link, ua string) (string, bool) {
	res, err := p.Head(ctx, utils.EncodeURI(link), ua)
	if err != nil {
		logger.Warnf("last link probe failed: %v", err)
		return "", false
	}

	switch {
	case res.IsRedirect() && res.Location != "":
		return res.Location, true
	case res.Status == http.StatusOK && strings.Contains(res.ContentType, "application/json"):
		// alist answers an unauthorized download with 200 and a json body
		logger.Warnf("last link probe of %s returned json, check the alist sign or auth settings", link)
	default:
		logger.Warnf("last link probe of %s: unexpected status %d", link, res.Status)
	}
	return "", false
}

// Preload requests link as an internal call so the route cache for tier gets populated.
func (p *Prober) Preload(ctx context.Context, link, ua, tier string) error {
	link = utils.AppendURLArg(link, rule.ArgCacheLevel, tier)
	link = utils.AppendURLArg(link, rule.ArgInternal, "1")

	res, err := p.Head(ctx, link, ua)
	if err != nil {
		return err
	}
	if res.Status != http.StatusOK && !(res.Status > 300 && res.Status < 309) {
		return fmt.Errorf("preload %s: unexpected status %d", tier, res.Status)
	}
	logger.Debugf("preloaded %s with ua %q", tier, ua)
	return nil
}
