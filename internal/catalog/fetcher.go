package catalog

import (
	"context"
	"errors"
	"time"

	"archivarr/internal/logging"
	"archivarr/internal/models"
)

// Fetcher walks the catalog's paginated listings and hands mapped
// models to the caller one item at a time.
type Fetcher struct {
	client Client
}

// NewFetcher returns a fetcher over the given catalog client.
func NewFetcher(client Client) *Fetcher {
	return &Fetcher{client: client}
}

// Videos streams a channel's videos newest-first. Every item is
// checked against the cutoff individually since remote ordering is not
// trusted; with stopAtCutoff, an item crossing the cutoff makes the
// current page the last one fetched, but the rest of that page is
// still filtered item by item so out-of-order in-window videos are not
// lost. The visit callback returns false to stop early.
func (f *Fetcher) Videos(ctx context.Context, uploadsID string, cutoff time.Time, stopAtCutoff bool, visit func(*models.Video) (bool, error)) error {
	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, nextToken, err := f.client.VideoIDsPage(ctx, uploadsID, pageToken)
		if err != nil {
			return err
		}

		videos, err := f.client.VideoDetails(ctx, ids)
		if err != nil {
			return err
		}

		// IDs listed but absent from the detail response were removed
		// upstream between the two calls.
		if len(videos) < len(ids) {
			logging.D(1, "Catalog dropped %d of %d listed videos mid-page", len(ids)-len(videos), len(ids))
		}

		lastPage := false
		for _, v := range videos {
			if !InWindow(v.UploadDate, cutoff) {
				if stopAtCutoff {
					lastPage = true
				}
				continue
			}
			cont, err := visit(v)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}

		if lastPage || nextToken == "" {
			return nil
		}
		pageToken = nextToken
	}
}

// Comments fetches a video's full comment catalog: top-level threads
// paginated, replies flattened one level beneath their parent. Videos
// with comments disabled yield an empty result, not an error.
func (f *Fetcher) Comments(ctx context.Context, videoRemoteID string) ([]*models.Comment, error) {
	var all []*models.Comment

	pageToken := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		threads, nextToken, err := f.client.CommentThreadsPage(ctx, videoRemoteID, pageToken)
		if err != nil {
			if errors.Is(err, errCommentsDisabled) {
				logging.D(1, "Comments disabled for video %q", videoRemoteID)
				return nil, nil
			}
			return nil, err
		}

		for _, thread := range threads {
			all = append(all, thread)
			if thread.ReplyCount == 0 {
				continue
			}
			replies, err := f.client.Replies(ctx, thread.RemoteID)
			if err != nil {
				return nil, err
			}
			all = append(all, replies...)
		}

		if nextToken == "" {
			return all, nil
		}
		pageToken = nextToken
	}
}
