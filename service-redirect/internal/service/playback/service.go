package playback

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"media-redirect/pkg/cache"
	"media-redirect/pkg/config"
	"media-redirect/pkg/logger"
	"media-redirect/pkg/model"
	"media-redirect/pkg/rule"
	"media-redirect/pkg/utils"
	"media-redirect/pkg/worker"

	"github.com/spf13/cast"
)

var ErrBlocked = errors.New("playback blocked by route rule")

var itemsSegment = regexp.MustCompile(`(?i)/items/`)
var playbackInfoSegment = regexp.MustCompile(`(?i)/playbackinfo$`)

// Preloader warms the route cache for a stream link
type Preloader interface {
	Preload(ctx context.Context, link, ua, tier string) error
}

// Service defines the PlaybackInfo rewriting interface
type Service interface {
	Rewrite(ctx context.Context, req *model.PlaybackRequest, body map[string]any) error
}

type playbackService struct {
	rules     *config.Rules
	preloader Preloader
	pool      *worker.Pool
}

func NewService(rules *config.Rules, preloader Preloader, pool *worker.Pool) Service {
	return &playbackService{
		rules:     rules,
		preloader: preloader,
		pool:      pool,
	}
}

// Rewrite points every media source of a PlaybackInfo response at a direct stream URL
// served by this proxy. body is modified in place.
func (s *playbackService) Rewrite(ctx context.Context, req *model.PlaybackRequest, body map[string]any) error {
	sources, ok := body["MediaSources"].([]any)
	if !ok || len(sources) == 0 {
		return nil
	}
	playSessionID := cast.ToString(body["PlaySessionId"])

	for _, raw := range sources {
		source, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rewrite, err := s.rewriteSource(req, source)
		if err != nil {
			return err
		}
		if !rewrite {
			continue
		}

		source["XOriginDirectStreamUrl"] = source["DirectStreamUrl"]
		streamURL := s.directStreamURL(req, source, playSessionID)
		source["DirectStreamUrl"] = streamURL
		source["XModifySuccess"] = true
		logger.Debugf("%s: direct stream url for source %v: %s", req.RequestID, source["Id"], streamURL)

		s.preload(req, streamURL)
	}
	return nil
}

// rewriteSource applies the transcode policy and reports whether the direct stream url
// should be rewritten.
func (s *playbackService) rewriteSource(req *model.PlaybackRequest, source map[string]any) (bool, error) {
	transcode := s.rules.Transcode

	source["SupportsDirectPlay"] = true
	source["SupportsDirectStream"] = true
	source["SupportsTranscoding"] = transcode.Enable

	if !transcode.Enable {
		if !transcode.RedirectTransOptEnable && source["TranscodingUrl"] != nil {
			delete(source, "TranscodingUrl")
			delete(source, "TranscodingSubProtocol")
			delete(source, "TranscodingContainer")
		}
		return true, nil
	}

	d := s.rules.Decider.Decide(req.Ctx, cast.ToString(source["Path"]), false, false)
	switch d.Action {
	case rule.ActionBlock:
		logger.Decision(req.RequestID, req.Ctx.URI, string(d.Action), d.Reason)
		return false, ErrBlocked
	case rule.ActionTranscode:
		source["SupportsDirectPlay"] = false
		source["SupportsDirectStream"] = false
		return false, nil
	case rule.ActionRedirect:
		if s.exceedsBitrate(req.Ctx, source) {
			source["SupportsDirectPlay"] = false
			source["SupportsDirectStream"] = false
		}
	}
	return true, nil
}

// exceedsBitrate reports a live stream opened past its start at a bitrate the client
// cannot take directly.
func (s *playbackService) exceedsBitrate(ctx *rule.Context, source map[string]any) bool {
	if ctx.Arg("AutoOpenLiveStream") != "true" || ctx.Arg("StartTimeTicks") == "0" {
		return false
	}
	maxBitrate, err := cast.ToInt64E(ctx.Arg("MaxStreamingBitrate"))
	if err != nil {
		return false
	}
	return maxBitrate < cast.ToInt64(source["Bitrate"])
}

// directStreamURL derives /videos/{id}/stream/{file} from the PlaybackInfo uri,
// carrying over the request arguments.
func (s *playbackService) directStreamURL(req *model.PlaybackRequest, source map[string]any, playSessionID string) string {
	name := utils.FileNameByPath(cast.ToString(source["Path"]))
	path := itemsSegment.ReplaceAllLiteralString(req.Ctx.URI, "/videos/")
	path = playbackInfoSegment.ReplaceAllLiteralString(path, "/stream/"+name)

	args := make(map[string]string, len(req.Ctx.Args)+4)
	for k, v := range req.Ctx.Args {
		if k == "StartTimeTicks" {
			continue
		}
		args[k] = v
	}
	if args["api_key"] == "" && args["X-Emby-Token"] == "" {
		key := req.Ctx.Header("X-Emby-Token")
		if key == "" {
			key = req.APIKey
		}
		if key != "" {
			args["api_key"] = key
		}
	}
	args["MediaSourceId"] = cast.ToString(source["Id"])
	if playSessionID != "" {
		args["PlaySessionId"] = playSessionID
	}
	args["Static"] = "true"

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+args[k])
	}
	return utils.EncodeURI(path + "?" + strings.Join(parts, "&"))
}

func (s *playbackService) preload(req *model.PlaybackRequest, streamURL string) {
	rc := s.rules.RouteCache
	if !rc.Enable || !rc.EnableL2 || s.preloader == nil || req.Origin == "" {
		return
	}
	if req.Ctx.Arg("IsPlayback") == "true" || strings.Contains(streamURL, ".m3u") {
		return
	}
	link := strings.TrimRight(req.Origin, "/") + streamURL
	s.pool.Submit("preload", func(ctx context.Context) error {
		return s.preloader.Preload(ctx, link, req.UserAgent, string(cache.TierL2))
	})
}
