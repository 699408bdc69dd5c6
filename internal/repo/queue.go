package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/Masterminds/squirrel"
)

// QueueStore holds a pointer to the sql.DB.
type QueueStore struct {
	DB *sql.DB
}

// GetQueueStore returns a queue store instance with injected database.
func GetQueueStore(db *sql.DB) *QueueStore {
	return &QueueStore{
		DB: db,
	}
}

// GetDB returns the database.
func (qs *QueueStore) GetDB() *sql.DB {
	return qs.DB
}

// Enqueue adds a download task for the video unless a live entry
// (queued or downloading) for the same video already exists. Returns
// enqueued=false when the video was already covered.
func (qs *QueueStore) Enqueue(videoID, syncJobID int64, priority, maxRetries int) (queueID int64, enqueued bool, err error) {
	tx, err := qs.DB.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed enqueuing video %d: %v", videoID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback enqueue of video %d (original error: %v): %v", videoID, err, rbErr)
			}
		}
	}()

	var liveID int64
	row := squirrel.
		Select(consts.QDLID).
		From(consts.DBQueue).
		Where(squirrel.And{
			squirrel.Eq{consts.QDLVidID: videoID},
			squirrel.Eq{consts.QDLStatus: []consts.QueueStatus{
				consts.QueueStatusQueued, consts.QueueStatusDownloading,
			}},
		}).
		RunWith(tx).
		QueryRow()

	switch err = row.Scan(&liveID); {
	case err == nil:
		if err = tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("failed to commit enqueue check: %w", err)
		}
		return liveID, false, nil

	case errors.Is(err, sql.ErrNoRows):
		if maxRetries <= 0 {
			maxRetries = consts.DefaultMaxRetries
		}
		var jobID any
		if syncJobID > 0 {
			jobID = syncJobID
		}
		insert := squirrel.
			Insert(consts.DBQueue).
			Columns(
				consts.QDLVidID, consts.QDLJobID, consts.QDLStatus,
				consts.QDLPriority, consts.QDLMaxRetries, consts.QDLNextAttemptAt,
			).
			Values(
				videoID, jobID, consts.QueueStatusQueued,
				priority, maxRetries, time.Now(),
			).
			RunWith(tx)

		var res sql.Result
		if res, err = insert.Exec(); err != nil {
			return 0, false, fmt.Errorf("failed to enqueue video %d: %w", videoID, err)
		}
		if queueID, err = res.LastInsertId(); err != nil {
			return 0, false, fmt.Errorf("failed to get enqueued item ID: %w", err)
		}

	default:
		return 0, false, fmt.Errorf("failed to check live queue entry for video %d: %w", videoID, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit enqueue: %w", err)
	}
	return queueID, true, nil
}

// DequeueNext atomically claims the next ready item, flipping it to
// downloading. Items with a future next_attempt_at are skipped.
// Returns errs.ErrQueueEmpty when nothing is ready.
func (qs *QueueStore) DequeueNext() (item *models.QueueItem, err error) {
	tx, err := qs.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed dequeuing: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback dequeue (original error: %v): %v", err, rbErr)
			}
		}
	}()

	now := time.Now()

	var candidateID int64
	row := squirrel.
		Select(consts.QDLID).
		From(consts.DBQueue).
		Where(squirrel.And{
			squirrel.Eq{consts.QDLStatus: consts.QueueStatusQueued},
			squirrel.LtOrEq{consts.QDLNextAttemptAt: now},
		}).
		OrderBy(consts.QDLPriority+" DESC", consts.QDLCreatedAt+" ASC", consts.QDLID+" ASC").
		Limit(1).
		RunWith(tx).
		QueryRow()

	if err = row.Scan(&candidateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if err = tx.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit empty dequeue: %w", err)
			}
			return nil, errs.ErrQueueEmpty
		}
		return nil, fmt.Errorf("failed to select dequeue candidate: %w", err)
	}

	claim := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLStatus, consts.QueueStatusDownloading).
		Set(consts.QDLStartedAt, now).
		Where(squirrel.Eq{
			consts.QDLID:     candidateID,
			consts.QDLStatus: consts.QueueStatusQueued,
		}).
		RunWith(tx)

	var res sql.Result
	if res, err = claim.Exec(); err != nil {
		return nil, fmt.Errorf("failed to claim queue item %d: %w", candidateID, err)
	}
	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to read claim result for item %d: %w", candidateID, err)
	}
	if n == 0 {
		// Another claimant won the race.
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit lost claim: %w", err)
		}
		return nil, errs.ErrQueueEmpty
	}

	if item, err = getQueueItem(tx, candidateID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dequeue: %w", err)
	}
	return item, nil
}

// UpdateProgress flushes live download progress for the item.
func (qs *QueueStore) UpdateProgress(queueID int64, progress float64, speed, eta string) error {
	query := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLProgress, progress).
		Set(consts.QDLSpeed, speed).
		Set(consts.QDLETA, eta).
		Where(squirrel.Eq{consts.QDLID: queueID}).
		RunWith(qs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update progress for queue item %d: %w", queueID, err)
	}
	return nil
}

// Requeue returns an item to queued after a transient failure, with a
// doubling backoff delay before it becomes claimable again.
func (qs *QueueStore) Requeue(queueID int64, retryCount int, errMsg string) error {
	backoff := consts.RetryBaseBackoff
	for i := 1; i < retryCount; i++ {
		backoff *= 2
	}
	query := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLStatus, consts.QueueStatusQueued).
		Set(consts.QDLRetryCount, retryCount).
		Set(consts.QDLErrMsg, errMsg).
		Set(consts.QDLProgress, 0).
		Set(consts.QDLSpeed, "").
		Set(consts.QDLETA, "").
		Set(consts.QDLNextAttemptAt, time.Now().Add(backoff)).
		Where(squirrel.Eq{consts.QDLID: queueID}).
		RunWith(qs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to requeue item %d: %w", queueID, err)
	}
	return nil
}

// MarkCompleted finalizes a finished item.
func (qs *QueueStore) MarkCompleted(queueID int64) error {
	query := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLStatus, consts.QueueStatusCompleted).
		Set(consts.QDLProgress, 100.0).
		Set(consts.QDLSpeed, "").
		Set(consts.QDLETA, "").
		Set(consts.QDLCompletedAt, time.Now()).
		Where(squirrel.Eq{consts.QDLID: queueID}).
		RunWith(qs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to mark queue item %d completed: %w", queueID, err)
	}
	return nil
}

// MarkFailed finalizes an item that exhausted retries or failed
// permanently.
func (qs *QueueStore) MarkFailed(queueID int64, errMsg string) error {
	query := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLStatus, consts.QueueStatusFailed).
		Set(consts.QDLErrMsg, errMsg).
		Set(consts.QDLSpeed, "").
		Set(consts.QDLETA, "").
		Set(consts.QDLCompletedAt, time.Now()).
		Where(squirrel.Eq{consts.QDLID: queueID}).
		RunWith(qs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to mark queue item %d failed: %w", queueID, err)
	}
	return nil
}

// ResetInterrupted returns items stranded in downloading by an unclean
// shutdown to queued so the next drain picks them up immediately.
func (qs *QueueStore) ResetInterrupted() (int64, error) {
	query := squirrel.
		Update(consts.DBQueue).
		Set(consts.QDLStatus, consts.QueueStatusQueued).
		Set(consts.QDLProgress, 0).
		Set(consts.QDLSpeed, "").
		Set(consts.QDLETA, "").
		Set(consts.QDLNextAttemptAt, time.Now()).
		Where(squirrel.Eq{consts.QDLStatus: consts.QueueStatusDownloading}).
		RunWith(qs.DB)

	res, err := query.Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to reset interrupted downloads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count reset downloads: %w", err)
	}
	return n, nil
}

// Delete removes a queue item regardless of state.
func (qs *QueueStore) Delete(queueID int64) error {
	res, err := squirrel.
		Delete(consts.DBQueue).
		Where(squirrel.Eq{consts.QDLID: queueID}).
		RunWith(qs.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete queue item %d: %w", queueID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("queue item %d does not exist", queueID)
	}
	return nil
}

// List returns queue items joined with their video identity, highest
// priority first then oldest first. Passing no statuses lists all.
func (qs *QueueStore) List(statuses ...string) ([]*models.QueueItem, error) {
	sel := squirrel.
		Select(
			"q.id", "q.video_id", "q.sync_job_id", "q.status",
			"q.priority", "q.progress", "q.download_speed", "q.eta",
			"q.error_message", "q.retry_count", "q.max_retries", "q.next_attempt_at",
			"q.created_at", "q.started_at", "q.completed_at",
			"v.remote_video_id", "v.title",
		).
		From(consts.DBQueue + " q").
		Join(consts.DBVideos + " v ON v.id = q.video_id").
		OrderBy("q.priority DESC", "q.created_at ASC", "q.id ASC")

	if len(statuses) > 0 {
		sel = sel.Where(squirrel.Eq{"q.status": statuses})
	}

	rows, err := sel.RunWith(qs.DB).Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query download queue: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close queue rows: %v", err)
		}
	}()

	var items []*models.QueueItem
	for rows.Next() {
		var (
			item        models.QueueItem
			jobID       sql.NullInt64
			startedAt   sql.NullTime
			completedAt sql.NullTime
		)
		if err := rows.Scan(
			&item.ID, &item.VideoID, &jobID, &item.Status,
			&item.Priority, &item.Progress, &item.Speed, &item.ETA,
			&item.ErrorMessage, &item.RetryCount, &item.MaxRetries, &item.NextAttemptAt,
			&item.CreatedAt, &startedAt, &completedAt,
			&item.RemoteVideoID, &item.VideoTitle,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		item.JobID = jobID.Int64
		if startedAt.Valid {
			item.StartedAt = &startedAt.Time
		}
		if completedAt.Valid {
			item.CompletedAt = &completedAt.Time
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue row iteration failed: %w", err)
	}
	return items, nil
}

// PendingCount counts items still queued or downloading.
func (qs *QueueStore) PendingCount() (int64, error) {
	var n int64
	err := squirrel.
		Select("COUNT(*)").
		From(consts.DBQueue).
		Where(squirrel.Eq{consts.QDLStatus: []consts.QueueStatus{
			consts.QueueStatusQueued, consts.QueueStatusDownloading,
		}}).
		RunWith(qs.DB).
		QueryRow().
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending queue items: %w", err)
	}
	return n, nil
}

// ******************************** Private ********************************

func getQueueItem(tx *sql.Tx, queueID int64) (*models.QueueItem, error) {
	row := squirrel.
		Select(
			"q.id", "q.video_id", "q.sync_job_id", "q.status",
			"q.priority", "q.progress", "q.download_speed", "q.eta",
			"q.error_message", "q.retry_count", "q.max_retries", "q.next_attempt_at",
			"q.created_at", "q.started_at", "q.completed_at",
			"v.remote_video_id", "v.title",
		).
		From(consts.DBQueue + " q").
		Join(consts.DBVideos + " v ON v.id = q.video_id").
		Where(squirrel.Eq{"q.id": queueID}).
		RunWith(tx).
		QueryRow()

	var (
		item        models.QueueItem
		jobID       sql.NullInt64
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&item.ID, &item.VideoID, &jobID, &item.Status,
		&item.Priority, &item.Progress, &item.Speed, &item.ETA,
		&item.ErrorMessage, &item.RetryCount, &item.MaxRetries, &item.NextAttemptAt,
		&item.CreatedAt, &startedAt, &completedAt,
		&item.RemoteVideoID, &item.VideoTitle,
	); err != nil {
		return nil, fmt.Errorf("failed to load claimed queue item %d: %w", queueID, err)
	}
	item.JobID = jobID.Int64
	if startedAt.Valid {
		item.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		item.CompletedAt = &completedAt.Time
	}
	return &item, nil
}
