// Package catalog fetches channel, video and comment metadata from the
// remote catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/araddon/dateparse"
)

// DefaultBaseURL is the production catalog endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// errCommentsDisabled is internal to the fetcher: a 403 on comment
// listing means the video has comments turned off, not a quota problem.
var errCommentsDisabled = errors.New("comments disabled for video")

// Client lists catalog resources. Implementations page newest-first
// and surface errs.ErrQuotaExceeded on quota exhaustion.
type Client interface {
	ChannelInfo(ctx context.Context, remoteID string) (*models.Channel, string, error)
	VideoIDsPage(ctx context.Context, uploadsID, pageToken string) (ids []string, nextToken string, err error)
	VideoDetails(ctx context.Context, remoteIDs []string) ([]*models.Video, error)
	CommentThreadsPage(ctx context.Context, videoRemoteID, pageToken string) (threads []*models.Comment, nextToken string, err error)
	Replies(ctx context.Context, parentRemoteID string) ([]*models.Comment, error)
}

// HTTPClient is the production Client over plain HTTP JSON.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewHTTPClient builds a catalog client with the given API key.
func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// ChannelInfo fetches channel metadata plus the uploads playlist ID
// used to enumerate its videos.
func (c *HTTPClient) ChannelInfo(ctx context.Context, remoteID string) (*models.Channel, string, error) {
	params := url.Values{
		"part": {"snippet,statistics,contentDetails,brandingSettings"},
		"id":   {remoteID},
	}

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return nil, "", err
	}
	if len(resp.Items) == 0 {
		return nil, "", fmt.Errorf("channel %q not found in catalog", remoteID)
	}

	item := resp.Items[0]
	ch := &models.Channel{
		RemoteID:        item.ID,
		Title:           item.Snippet.Title,
		Description:     item.Snippet.Description,
		CustomURL:       item.Snippet.CustomURL,
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		VideoCount:      parseCount(item.Statistics.VideoCount),
		ViewCount:       parseCount(item.Statistics.ViewCount),
		AvatarURL:       item.Snippet.Thumbnails.best(),
		BannerURL:       item.BrandingSettings.Image.BannerExternalURL,
	}
	return ch, item.ContentDetails.RelatedPlaylists.Uploads, nil
}

// VideoIDsPage fetches one page of video IDs from the uploads playlist,
// newest first.
func (c *HTTPClient) VideoIDsPage(ctx context.Context, uploadsID, pageToken string) ([]string, string, error) {
	params := url.Values{
		"part":       {"contentDetails"},
		"playlistId": {uploadsID},
		"maxResults": {strconv.Itoa(consts.CatalogPageSize)},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp playlistItemsResponse
	if err := c.get(ctx, "/playlistItems", params, &resp); err != nil {
		return nil, "", err
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ContentDetails.VideoID != "" {
			ids = append(ids, item.ContentDetails.VideoID)
		}
	}
	return ids, resp.NextPageToken, nil
}

// VideoDetails fetches full metadata for a batch of video IDs. Remote
// IDs missing from the response were removed upstream and simply do
// not appear in the result.
func (c *HTTPClient) VideoDetails(ctx context.Context, remoteIDs []string) ([]*models.Video, error) {
	if len(remoteIDs) == 0 {
		return nil, nil
	}

	params := url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {joinIDs(remoteIDs)},
	}

	var resp videoListResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return nil, err
	}

	videos := make([]*models.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		v := &models.Video{
			RemoteID:     item.ID,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			Duration:     parseISODuration(item.ContentDetails.Duration),
			ViewCount:    parseCount(item.Statistics.ViewCount),
			LikeCount:    parseCount(item.Statistics.LikeCount),
			CommentCount: parseCount(item.Statistics.CommentCount),
			ThumbnailURL: item.Snippet.Thumbnails.best(),
		}
		if t, err := dateparse.ParseAny(item.Snippet.PublishedAt); err == nil {
			v.UploadDate = t
		} else {
			logging.D(1, "Unparseable publish date %q for video %q: %v", item.Snippet.PublishedAt, item.ID, err)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// CommentThreadsPage fetches one page of top-level comment threads for
// a video. A 403 here means comments are disabled and is reported as
// errCommentsDisabled.
func (c *HTTPClient) CommentThreadsPage(ctx context.Context, videoRemoteID, pageToken string) ([]*models.Comment, string, error) {
	params := url.Values{
		"part":       {"snippet"},
		"videoId":    {videoRemoteID},
		"maxResults": {strconv.Itoa(consts.CatalogPageSize)},
		"order":      {"time"},
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp commentThreadsResponse
	if err := c.get(ctx, "/commentThreads", params, &resp); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusForbidden && !errors.Is(err, errs.ErrQuotaExceeded) {
			return nil, "", errCommentsDisabled
		}
		return nil, "", err
	}

	threads := make([]*models.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		cm := mapComment(item.Snippet.TopLevelComment)
		cm.TopLevel = true
		cm.ReplyCount = item.Snippet.TotalReplyCount
		threads = append(threads, cm)
	}
	return threads, resp.NextPageToken, nil
}

// Replies fetches the direct replies of one top-level comment.
func (c *HTTPClient) Replies(ctx context.Context, parentRemoteID string) ([]*models.Comment, error) {
	params := url.Values{
		"part":       {"snippet"},
		"parentId":   {parentRemoteID},
		"maxResults": {strconv.Itoa(consts.CatalogPageSize)},
	}

	var resp commentListResponse
	if err := c.get(ctx, "/comments", params, &resp); err != nil {
		return nil, err
	}

	replies := make([]*models.Comment, 0, len(resp.Items))
	for _, item := range resp.Items {
		cm := mapComment(item)
		cm.TopLevel = false
		cm.ParentRemoteID = parentRemoteID
		replies = append(replies, cm)
	}
	return replies, nil
}

// ******************************** Private ********************************

// statusError carries the HTTP status so callers can distinguish
// comment-disabled 403s from other failures.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request %s failed: %w", path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.E("Failed to close catalog response body: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("failed to read catalog response for %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(body, &apiErr) == nil {
			for _, e := range apiErr.Error.Errors {
				if e.Reason == "quotaExceeded" || e.Reason == "dailyLimitExceeded" {
					return &statusError{code: resp.StatusCode, err: fmt.Errorf("%w: %s", errs.ErrQuotaExceeded, apiErr.Error.Message)}
				}
			}
		}
		return &statusError{
			code: resp.StatusCode,
			err:  fmt.Errorf("catalog request %s returned HTTP %d: %s", path, resp.StatusCode, apiErr.Error.Message),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode catalog response for %s: %w", path, err)
	}
	return nil
}

func mapComment(r commentResource) *models.Comment {
	cm := &models.Comment{
		RemoteID:        r.ID,
		AuthorName:      r.Snippet.AuthorDisplayName,
		AuthorChannelID: r.Snippet.AuthorChannelID.Value,
		AuthorImageURL:  r.Snippet.AuthorProfileImageURL,
		Text:            r.Snippet.TextOriginal,
		LikeCount:       r.Snippet.LikeCount,
		ParentRemoteID:  r.Snippet.ParentID,
	}
	if t, err := dateparse.ParseAny(r.Snippet.PublishedAt); err == nil {
		cm.PublishedAt = t
	}
	return cm
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseISODuration converts the catalog's ISO-8601 durations (PT1H2M3S)
// to seconds.
func parseISODuration(s string) int64 {
	var total, cur int64
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			cur = cur*10 + int64(r-'0')
		case r == 'H':
			total += cur * 3600
			cur = 0
		case r == 'M':
			total += cur * 60
			cur = 0
		case r == 'S':
			total += cur
			cur = 0
		default:
			cur = 0
		}
	}
	return total
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}
