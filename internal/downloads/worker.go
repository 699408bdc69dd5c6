package downloads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archivarr/internal/broadcast"
	"archivarr/internal/contracts"
	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/logging"
	"archivarr/internal/models"
)

// drainIdleWait is how long the drain loop sleeps when the only
// remaining items are backing off.
const drainIdleWait = time.Second

// Worker drains the download queue one claimed item at a time.
type Worker struct {
	queue     contracts.QueueStore
	videos    contracts.VideoStore
	errorLogs contracts.ErrorLogStore
	hub       *broadcast.Hub
	dl        Downloader
}

// NewWorker wires a drain worker.
func NewWorker(queue contracts.QueueStore, videos contracts.VideoStore, errorLogs contracts.ErrorLogStore, hub *broadcast.Hub, dl Downloader) *Worker {
	return &Worker{
		queue:     queue,
		videos:    videos,
		errorLogs: errorLogs,
		hub:       hub,
		dl:        dl,
	}
}

// Drain claims and downloads items until the queue has nothing left,
// waiting out backoff windows in between. Returns the terminal counts.
// Cancellation kills the in-flight subprocess and returns the claimed
// item to the queue.
func (w *Worker) Drain(ctx context.Context, jobID int64, opts Options) (completed, failed int, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return completed, failed, err
		}

		item, err := w.queue.DequeueNext()
		if errors.Is(err, errs.ErrQueueEmpty) {
			pending, err := w.queue.PendingCount()
			if err != nil {
				return completed, failed, err
			}
			if pending == 0 {
				return completed, failed, nil
			}
			// Items exist but their backoff has not elapsed.
			select {
			case <-ctx.Done():
				return completed, failed, ctx.Err()
			case <-time.After(drainIdleWait):
			}
			continue
		}
		if err != nil {
			return completed, failed, err
		}

		switch w.processItem(ctx, item, opts) {
		case outcomeCompleted:
			completed++
		case outcomeFailed:
			failed++
		case outcomeRetry:
			// Terminal count unchanged; the item will be claimed again.
		case outcomeCancelled:
			return completed, failed, ctx.Err()
		}
	}
}

// ******************************** Private ********************************

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeRetry
	outcomeCancelled
)

func (w *Worker) processItem(ctx context.Context, item *models.QueueItem, opts Options) outcome {
	video, found, err := w.videos.GetByID(item.VideoID)
	if err != nil || !found {
		logging.E("Queue item %d references missing video %d: %v", item.ID, item.VideoID, err)
		w.finalizeFailed(item, video, "video row missing", consts.ErrTypePermanent)
		return outcomeFailed
	}

	logging.I("Downloading video %q (%s), attempt %d/%d", video.Title, video.RemoteID, item.RetryCount+1, item.MaxRetries+1)

	w.hub.PushDownload(models.DownloadProgress{
		VideoID:  video.ID,
		RemoteID: video.RemoteID,
		Title:    video.Title,
		Status:   string(consts.QueueStatusDownloading),
	})

	throttle := newProgressThrottle()
	onProgress := func(p Progress) {
		if !throttle.due(p.Percent) {
			return
		}
		if err := w.queue.UpdateProgress(item.ID, p.Percent, p.Speed, p.ETA); err != nil {
			logging.E("Failed to flush progress for queue item %d: %v", item.ID, err)
		}
		w.hub.PushDownload(models.DownloadProgress{
			VideoID:  video.ID,
			RemoteID: video.RemoteID,
			Title:    video.Title,
			Progress: p.Percent,
			Speed:    p.Speed,
			ETA:      p.ETA,
			Status:   string(consts.QueueStatusDownloading),
		})
	}

	res, err := w.dl.Download(ctx, video, opts, onProgress)
	if err == nil {
		if err := w.videos.MarkDownloaded(video.ID, res.VideoPath, res.ThumbnailPath, res.Quality, res.SizeBytes); err != nil {
			logging.E("Failed to mark video %d downloaded: %v", video.ID, err)
		}
		if err := w.queue.MarkCompleted(item.ID); err != nil {
			logging.E("Failed to mark queue item %d completed: %v", item.ID, err)
		}
		w.hub.FinishDownload(models.DownloadProgress{
			VideoID:  video.ID,
			RemoteID: video.RemoteID,
			Title:    video.Title,
			Progress: 100,
			Status:   string(consts.QueueStatusCompleted),
		})
		logging.I("Downloaded video %q (%s, %d bytes)", video.Title, video.RemoteID, res.SizeBytes)
		return outcomeCompleted
	}

	if ctx.Err() != nil {
		// Stop requested: return the claim so the next run resumes it.
		if rqErr := w.queue.Requeue(item.ID, item.RetryCount, "interrupted by stop"); rqErr != nil {
			logging.E("Failed to requeue interrupted item %d: %v", item.ID, rqErr)
		}
		w.hub.FinishDownload(models.DownloadProgress{
			VideoID:  video.ID,
			RemoteID: video.RemoteID,
			Title:    video.Title,
			Status:   string(consts.QueueStatusQueued),
		})
		return outcomeCancelled
	}

	de := errs.ClassifyDownload(err, "")
	switch de.Kind {
	case errs.KindTransient:
		retry := item.RetryCount + 1
		if retry <= item.MaxRetries {
			logging.W("Transient failure downloading %q, retry %d/%d: %v", video.RemoteID, retry, item.MaxRetries, err)
			if rqErr := w.queue.Requeue(item.ID, retry, err.Error()); rqErr != nil {
				logging.E("Failed to requeue item %d: %v", item.ID, rqErr)
			}
			return outcomeRetry
		}
		w.finalizeFailed(item, video, fmt.Sprintf("retries exhausted: %v", err), consts.ErrTypeTransient)

	case errs.KindPermanent:
		// Source refused the item; keep any local copy but stop asking.
		if muErr := w.videos.MarkUnavailable(video.ID); muErr != nil {
			logging.E("Failed to mark video %d unavailable: %v", video.ID, muErr)
		}
		w.finalizeFailed(item, video, err.Error(), consts.ErrTypePermanent)

	case errs.KindStorage:
		w.finalizeFailed(item, video, err.Error(), consts.ErrTypeStorage)
	}
	return outcomeFailed
}

func (w *Worker) finalizeFailed(item *models.QueueItem, video *models.Video, msg, errType string) {
	if err := w.queue.MarkFailed(item.ID, msg); err != nil {
		logging.E("Failed to mark queue item %d failed: %v", item.ID, err)
	}
	logEntry := &models.ErrorLog{
		JobID:        item.JobID,
		VideoID:      item.VideoID,
		ErrorType:    errType,
		ErrorMessage: msg,
	}
	if err := w.errorLogs.Add(logEntry); err != nil {
		logging.E("Failed to record error log for queue item %d: %v", item.ID, err)
	}

	dp := models.DownloadProgress{
		VideoID: item.VideoID,
		Status:  string(consts.QueueStatusFailed),
	}
	if video != nil {
		dp.RemoteID = video.RemoteID
		dp.Title = video.Title
	}
	w.hub.FinishDownload(dp)
	logging.E("Download failed for queue item %d (%s): %s", item.ID, errType, msg)
}

// progressThrottle forwards a progress tick only after enough time or
// percentage movement since the last forwarded tick.
type progressThrottle struct {
	lastAt  time.Time
	lastPct float64
}

func newProgressThrottle() *progressThrottle {
	return &progressThrottle{lastPct: -consts.ProgressMinDelta}
}

func (t *progressThrottle) due(pct float64) bool {
	now := time.Now()
	if now.Sub(t.lastAt) < consts.ProgressMinInterval && pct-t.lastPct < consts.ProgressMinDelta {
		return false
	}
	t.lastAt = now
	t.lastPct = pct
	return true
}
