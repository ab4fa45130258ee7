package redirect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"media-redirect/pkg/auth"
	"media-redirect/pkg/cache"
	"media-redirect/pkg/config"
	"media-redirect/pkg/logger"
	"media-redirect/pkg/mediaserver"
	"media-redirect/pkg/model"
	"media-redirect/pkg/notify"
	"media-redirect/pkg/rule"
	"media-redirect/pkg/storage"
	"media-redirect/pkg/utils"
	"media-redirect/pkg/worker"
)

var loopbackOrigin = regexp.MustCompile(`^http://127\.0\.0\.1(:\d+)?`)

// ItemLookup resolves a media item to its file path
type ItemLookup interface {
	Item(ctx context.Context, q mediaserver.ItemQuery) (*mediaserver.Item, error)
}

// LinkProber follows remote links one hop
type LinkProber interface {
	LastLink(ctx context.Context, link, ua string) (string, bool)
}

// Notifier receives a message per routed request
type Notifier interface {
	Notify(msg notify.Message)
}

// Service defines the routing interface
type Service interface {
	Resolve(ctx context.Context, req *model.ResolveRequest) *model.Resolution
}

type redirectService struct {
	rules           *config.Rules
	items           ItemLookup
	storage         storage.Provider
	prober          LinkProber
	links           *cache.LinkCache
	signer          *auth.LinkSigner
	notifier        Notifier
	pool            *worker.Pool
	alistAddr       string
	alistPublicAddr string
}

// NewService wires the orchestrator. links may be nil when the route cache is disabled.
func NewService(
	cfg *config.Config,
	items ItemLookup,
	storageProvider storage.Provider,
	prober LinkProber,
	links *cache.LinkCache,
	notifier Notifier,
	pool *worker.Pool,
) Service {
	s := &redirectService{
		rules:           cfg.Rules,
		items:           items,
		storage:         storageProvider,
		prober:          prober,
		links:           links,
		notifier:        notifier,
		pool:            pool,
		alistAddr:       strings.TrimRight(cfg.Storage.Alist.Addr, "/"),
		alistPublicAddr: strings.TrimRight(cfg.Storage.Alist.PublicAddr, "/"),
	}
	if cfg.Rules.Sign.Enable {
		s.signer = auth.NewLinkSigner(cfg.Rules.Sign.Secret, cfg.Rules.Sign.ExpireHours)
	}
	return s
}

// resolution carries what the after-steps need besides the answer itself
type resolution struct {
	*model.Resolution
	req  *model.ResolveRequest
	key  string
	tier cache.Tier

	// aborted marks a collaborator call cut short by a cancelled request
	aborted bool
}

func (r *resolution) observe(err error) {
	if errors.Is(err, context.Canceled) {
		r.aborted = true
	}
}

// Resolve routes one request. Collaborator failures never surface; they fall back to
// the media server.
func (s *redirectService) Resolve(ctx context.Context, req *model.ResolveRequest) *model.Resolution {
	r := &resolution{req: req, tier: cache.ParseTier(req.Ctx.Arg(rule.ArgCacheLevel))}

	if s.cacheEnabled() {
		r.key = cache.Key(req.Ctx, s.rules.RouteCache.KeyExpression)
		cached, _, err := s.links.Lookup(ctx, r.tier, r.key, req.UserAgent)
		if err != nil {
			logger.Warnf("route cache lookup failed: %v", err)
		}
		if cached != "" {
			if cache.IsFallback(cached) {
				return s.fallback(ctx, r, "route cache "+string(r.tier), true)
			}
			return s.redirect(ctx, r, cached, "route cache "+string(r.tier), true)
		}
	}

	item, err := s.items.Item(ctx, req.Item)
	if err != nil {
		r.observe(err)
		return s.fallback(ctx, r, fmt.Sprintf("item lookup failed: %v", err), false)
	}

	path := item.Path
	if item.NotLocal {
		// strm contents are often percent encoded
		if decoded, err := url.PathUnescape(path); err == nil {
			path = decoded
		}
	}

	d := s.rules.Decider.Decide(req.Ctx, path, false, item.NotLocal)
	switch d.Action {
	case rule.ActionProxy:
		return s.fallback(ctx, r, d.Reason, false)
	case rule.ActionBlock:
		return s.block(r, d.Reason)
	}

	mapped := s.rules.Mapper.Map(path, item.NotLocal)
	logger.Debugf("mapped %q to %q", path, mapped)

	if utils.IsRemotePath(mapped) {
		return s.resolveRemote(ctx, r, mapped)
	}
	return s.resolveStorage(ctx, r, mapped, item.NotLocal)
}

// resolveRemote handles strm contents that are links rather than paths.
func (s *redirectService) resolveRemote(ctx context.Context, r *resolution, link string) *model.Resolution {
	lr, ok := rule.FindLastLinkRule(s.rules.LastLink, link)
	if !ok {
		return s.redirect(ctx, r, link, "remote strm link", false)
	}

	if last, ok := s.prober.LastLink(ctx, signLastLink(lr, link), r.req.UserAgent); ok {
		return s.redirect(ctx, r, last, "last link of "+lr.Matcher.String(), false)
	}

	if fb := s.linkFailback(link); fb != link {
		logger.Debugf("last link probe failed, retrying with %s", fb)
		if last, ok := s.prober.LastLink(ctx, signLastLink(lr, fb), r.req.UserAgent); ok {
			return s.redirect(ctx, r, last, "last link of download route", false)
		}
	}

	return s.redirect(ctx, r, link, "last link probe failed, using strm link", false)
}

func signLastLink(lr rule.LastLinkRule, link string) string {
	if lr.AuthType != rule.AuthSign {
		return link
	}
	return auth.NewLinkSigner(lr.SignSecret, lr.SignExpireHours).SignURL(link)
}

// linkFailback inserts the /d download segment into alist links that lack it.
func (s *redirectService) linkFailback(link string) string {
	for _, addr := range []string{s.alistAddr, s.alistPublicAddr} {
		if addr == "" || !strings.HasPrefix(link, addr) {
			continue
		}
		rest := strings.TrimPrefix(link, addr)
		if strings.HasPrefix(rest, "/d/") {
			continue
		}
		return addr + "/d" + rest
	}
	return link
}

func (s *redirectService) resolveStorage(ctx context.Context, r *resolution, path string, notLocal bool) *model.Resolution {
	link, err := s.storage.DirectLink(ctx, path, r.req.UserAgent)
	switch {
	case err == nil:
		direct := s.rewriteClientLink(link, path)
		d := s.rules.Decider.Decide(r.req.Ctx, direct, true, notLocal)
		switch d.Action {
		case rule.ActionProxy:
			return s.fallback(ctx, r, d.Reason, false)
		case rule.ActionBlock:
			return s.block(r, d.Reason)
		}
		return s.redirect(ctx, r, direct, d.Reason, false)

	case errors.Is(err, storage.ErrServerError):
		logger.Debugf("direct link for %q failed, retrying under mount folders: %v", path, err)
		return s.retryByFolders(ctx, r, path)

	default:
		r.observe(err)
		return s.fallback(ctx, r, fmt.Sprintf("direct link failed: %v", err), false)
	}
}

// retryByFolders tries path under each backend root folder in lexical order.
func (s *redirectService) retryByFolders(ctx context.Context, r *resolution, path string) *model.Resolution {
	folders, err := s.storage.ListRoot(ctx, r.req.UserAgent)
	if err != nil {
		r.observe(err)
		return s.fallback(ctx, r, fmt.Sprintf("listing mount folders failed: %v", err), false)
	}
	sort.Strings(folders)

	for _, folder := range folders {
		candidate := "/" + folder + path
		link, err := s.storage.DirectLink(ctx, candidate, r.req.UserAgent)
		if err != nil {
			logger.Debugf("no direct link under %q: %v", candidate, err)
			continue
		}
		direct := s.rewriteClientLink(link, candidate)
		if s.alistPublicAddr != "" {
			direct = loopbackOrigin.ReplaceAllLiteralString(direct, s.alistPublicAddr)
		}
		return s.redirect(ctx, r, direct, "found under mount folder "+folder, false)
	}

	return s.fallback(ctx, r, "not found under any mount folder", false)
}

// rewriteClientLink points matching backend links at a public download address.
func (s *redirectService) rewriteClientLink(link *storage.Link, path string) string {
	rw, ok := rule.FindRewriteRule(s.rules.ClientRewrite, link.URL)
	if !ok {
		return link.URL
	}
	u := rw.PublicAddr + "/d" + utils.EncodeURI(path)
	if link.Sign != "" {
		u += "?sign=" + link.Sign
	}
	return u
}

func (s *redirectService) cacheEnabled() bool {
	return s.links != nil && s.rules.RouteCache.Enable
}
