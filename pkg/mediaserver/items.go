package mediaserver

import (
	"context"
	"fmt"
	"net/url"

	"media-redirect/pkg/utils"

	"github.com/spf13/cast"
)

// ItemQuery identifies the media file behind a playback request.
type ItemQuery struct {
	ItemID        string
	MediaSourceID string
	// ETag picks a media source on Jellyfin, where one item carries several.
	ETag   string
	APIKey string
	// JobItem selects a /Sync/JobItems download instead of a library item.
	JobItem bool
}

// Item is the resolved filesystem (or strm) path of a media file.
type Item struct {
	Path     string
	Name     string
	NotLocal bool
}

type mediaSource struct {
	ID   string `json:"Id"`
	Path string `json:"Path"`
	ETag string `json:"ETag"`
}

type itemsResponse struct {
	Items []struct {
		Name         string        `json:"Name"`
		Path         string        `json:"Path"`
		MediaSources []mediaSource `json:"MediaSources"`
	} `json:"Items"`
}

type jobItemsResponse struct {
	Items []struct {
		ID          any    `json:"Id"`
		OutputPath  string `json:"OutputPath"`
		MediaSource *struct {
			Path string `json:"Path"`
		} `json:"MediaSource"`
	} `json:"Items"`
}

// Item looks up the path of the media file for q.
func (c *Client) Item(ctx context.Context, q ItemQuery) (*Item, error) {
	if q.JobItem {
		return c.jobItem(ctx, q)
	}

	id := q.ItemID
	if q.MediaSourceID != "" {
		id = q.MediaSourceID
	}
	query := url.Values{
		"Ids":     {id},
		"Fields":  {"Path,MediaSources"},
		"Limit":   {"1"},
		"api_key": {c.key(q.APIKey)},
	}

	var res itemsResponse
	if err := c.getJSON(ctx, c.endpoint("/Items", query), &res); err != nil {
		return nil, err
	}
	if len(res.Items) == 0 {
		return nil, fmt.Errorf("%w: /Items returned no item for %s", ErrItemNotFound, id)
	}

	item := res.Items[0]
	// photos and other media without sources
	if len(item.MediaSources) == 0 {
		return &Item{Path: item.Path, Name: item.Name}, nil
	}

	source := &item.MediaSources[0]
	if q.ETag != "" {
		source = findSource(item.MediaSources, func(s mediaSource) bool { return s.ETag == q.ETag })
	}
	if q.MediaSourceID != "" {
		source = findSource(item.MediaSources, func(s mediaSource) bool { return s.ID == q.MediaSourceID })
	}
	if source == nil {
		return nil, fmt.Errorf("%w: no media source of %s matches", ErrItemNotFound, id)
	}

	return &Item{
		Path:     source.Path,
		Name:     item.Name,
		NotLocal: utils.IsStrmPath(item.Path),
	}, nil
}

func (c *Client) jobItem(ctx context.Context, q ItemQuery) (*Item, error) {
	query := url.Values{"api_key": {c.key(q.APIKey)}}

	var res jobItemsResponse
	if err := c.getJSON(ctx, c.endpoint("/Sync/JobItems", query), &res); err != nil {
		return nil, err
	}
	for _, it := range res.Items {
		if cast.ToString(it.ID) != q.ItemID || it.MediaSource == nil {
			continue
		}
		return &Item{
			Path:     it.MediaSource.Path,
			NotLocal: utils.IsStrmPath(it.OutputPath),
		}, nil
	}
	return nil, fmt.Errorf("%w: no sync job item %s", ErrItemNotFound, q.ItemID)
}

func findSource(sources []mediaSource, match func(mediaSource) bool) *mediaSource {
	for i := range sources {
		if match(sources[i]) {
			return &sources[i]
		}
	}
	return nil
}
