package redirect

import (
	"context"
	"fmt"

	"media-redirect/pkg/cache"
	"media-redirect/pkg/logger"
	"media-redirect/pkg/model"
	"media-redirect/pkg/notify"
)

func (s *redirectService) redirect(ctx context.Context, r *resolution, link, reason string, cached bool) *model.Resolution {
	if s.signer != nil {
		link = s.signer.SignURL(link)
	}
	r.Resolution = &model.Resolution{
		Outcome: model.OutcomeRedirect,
		URL:     link,
		Reason:  reason,
		Cached:  cached,
	}
	s.finish(ctx, r)
	return r.Resolution
}

func (s *redirectService) fallback(ctx context.Context, r *resolution, reason string, cached bool) *model.Resolution {
	r.Resolution = &model.Resolution{
		Outcome: model.OutcomeFallback,
		Reason:  reason,
		Cached:  cached,
	}
	s.finish(ctx, r)
	return r.Resolution
}

func (s *redirectService) block(r *resolution, reason string) *model.Resolution {
	r.Resolution = &model.Resolution{
		Outcome: model.OutcomeBlock,
		Reason:  reason,
	}
	logger.Decision(r.req.RequestID, r.req.Ctx.URI, string(r.Outcome), reason)
	return r.Resolution
}

// finish logs the decision and hands cache population and notification to the pool.
// A request the client already abandoned leaves no trace in the cache.
func (s *redirectService) finish(ctx context.Context, r *resolution) {
	logger.Decision(r.req.RequestID, r.req.Ctx.URI, string(r.Outcome), r.Reason)

	if ctx.Err() != nil || r.aborted {
		logger.Debugf("request %s abandoned, skipping route cache and notification", r.req.RequestID)
		return
	}

	if s.cacheEnabled() {
		s.pool.Submit("route-cache", func(ctx context.Context) error {
			return s.populate(ctx, r)
		})
	}

	if s.notifier != nil && !r.req.Ctx.IsInternal() {
		s.notifier.Notify(s.message(r))
	}
}

// populate stores links per client unless they are shared, and fallback markers in L1
// under the plain key.
func (s *redirectService) populate(ctx context.Context, r *resolution) error {
	if r.Outcome == model.OutcomeFallback {
		return s.links.Put(ctx, cache.TierL1, r.key, cache.FallbackMarker)
	}
	return s.links.PutLink(ctx, r.tier, r.key, r.req.UserAgent, r.URL)
}

func (s *redirectService) message(r *resolution) notify.Message {
	prefix := ""
	if s.cacheEnabled() {
		tier := r.tier
		if r.Outcome == model.OutcomeFallback {
			tier = cache.TierL1
		}
		prefix = fmt.Sprintf("hit routeCache %s: %t, ", tier, r.Cached)
	}

	msg := notify.Message{DeviceID: r.req.Ctx.DeviceID()}
	if r.Outcome == model.OutcomeFallback {
		msg.Text = prefix + "use original link: success"
		msg.Detail = prefix + "use original link: " + r.req.Ctx.URI
		return msg
	}
	msg.Text = prefix + "redirect: success"
	msg.Detail = fmt.Sprintf("%soriginal link: %s\nredirect to: %s", prefix, r.req.Ctx.URI, r.URL)
	return msg
}
