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

// JobStore holds a pointer to the sql.DB.
type JobStore struct {
	DB *sql.DB
}

// GetJobStore returns a sync job store instance with injected database.
func GetJobStore(db *sql.DB) *JobStore {
	return &JobStore{
		DB: db,
	}
}

// GetDB returns the database.
func (js *JobStore) GetDB() *sql.DB {
	return js.DB
}

// CreateRunning inserts a new running job. The running-count check and
// the insert share one transaction so two concurrent starts cannot
// both succeed; the loser gets errs.ErrJobConflict.
func (js *JobStore) CreateRunning(jobType, timeFilter string, channelID int64) (job *models.SyncJob, err error) {
	tx, err := js.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed creating sync job: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback sync job creation (original error: %v): %v", err, rbErr)
			}
		}
	}()

	var running int64
	err = squirrel.
		Select("COUNT(*)").
		From(consts.DBSyncJobs).
		Where(squirrel.Eq{consts.QJobStatus: consts.JobStatusRunning}).
		RunWith(tx).
		QueryRow().
		Scan(&running)
	if err != nil {
		return nil, fmt.Errorf("failed to count running jobs: %w", err)
	}
	if running > 0 {
		err = errs.ErrJobConflict
		return nil, err
	}

	now := time.Now()
	insert := squirrel.
		Insert(consts.DBSyncJobs).
		Columns(
			consts.QJobType, consts.QJobStatus, consts.QJobTimeFilter,
			consts.QJobChanID, consts.QJobStartedAt,
		).
		Values(
			jobType, consts.JobStatusRunning, timeFilter,
			channelID, now,
		).
		RunWith(tx)

	res, err := insert.Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to insert sync job: %w", err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted job ID: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync job creation: %w", err)
	}

	return &models.SyncJob{
		ID:         jobID,
		JobType:    consts.JobType(jobType),
		Status:     consts.JobStatusRunning,
		TimeFilter: consts.TimeFilter(timeFilter),
		ChannelID:  channelID,
		StartedAt:  &now,
		CreatedAt:  now,
	}, nil
}

// UpdateCounts flushes live item counters for a running job.
func (js *JobStore) UpdateCounts(jobID int64, total, processed, failed int) error {
	query := squirrel.
		Update(consts.DBSyncJobs).
		Set(consts.QJobTotal, total).
		Set(consts.QJobProcessed, processed).
		Set(consts.QJobFailed, failed).
		Where(squirrel.Eq{consts.QJobID: jobID}).
		RunWith(js.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update counts for job %d: %w", jobID, err)
	}
	return nil
}

// Finish moves a running job into a terminal state. Jobs already in a
// terminal state are left untouched.
func (js *JobStore) Finish(jobID int64, status, errMsg string) error {
	query := squirrel.
		Update(consts.DBSyncJobs).
		Set(consts.QJobStatus, status).
		Set(consts.QJobErrMsg, errMsg).
		Set(consts.QJobCompletedAt, time.Now()).
		Where(squirrel.Eq{
			consts.QJobID:     jobID,
			consts.QJobStatus: consts.JobStatusRunning,
		}).
		RunWith(js.DB)

	res, err := query.Exec()
	if err != nil {
		return fmt.Errorf("failed to finish job %d: %w", jobID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %d is not running", jobID)
	}
	return nil
}

// GetByID retrieves a single job.
func (js *JobStore) GetByID(jobID int64) (*models.SyncJob, bool, error) {
	return js.getOne(squirrel.Eq{consts.QJobID: jobID})
}

// GetRunning retrieves the running job, if any.
func (js *JobStore) GetRunning() (*models.SyncJob, bool, error) {
	return js.getOne(squirrel.Eq{consts.QJobStatus: consts.JobStatusRunning})
}

// ListRecent retrieves the most recent jobs, newest first.
func (js *JobStore) ListRecent(limit int) ([]*models.SyncJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := jobSelect().
		OrderBy(consts.QJobCreatedAt+" DESC", consts.QJobID+" DESC").
		Limit(uint64(limit)).
		RunWith(js.DB).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close sync job rows: %v", err)
		}
	}()

	var jobs []*models.SyncJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync job row iteration failed: %w", err)
	}
	return jobs, nil
}

// AddHistory appends a completed-run record.
func (js *JobStore) AddHistory(h *models.SyncHistory) error {
	res, err := squirrel.
		Insert(consts.DBHistory).
		Columns(consts.QHistJobID, consts.QHistVideos, consts.QHistDuration).
		Values(h.JobID, h.VideosSynced, h.Duration).
		RunWith(js.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert sync history: %w", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get inserted history ID: %w", err)
	}
	return nil
}

// ListHistory retrieves completed-run records, newest first.
func (js *JobStore) ListHistory(limit int) ([]*models.SyncHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := squirrel.
		Select(
			consts.QHistID, consts.QHistJobID, consts.QHistVideos,
			consts.QHistDuration, consts.QHistCreatedAt,
		).
		From(consts.DBHistory).
		OrderBy(consts.QHistCreatedAt+" DESC", consts.QHistID+" DESC").
		Limit(uint64(limit)).
		RunWith(js.DB).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close sync history rows: %v", err)
		}
	}()

	var records []*models.SyncHistory
	for rows.Next() {
		var (
			h     models.SyncHistory
			jobID sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &jobID, &h.VideosSynced, &h.Duration, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync history row: %w", err)
		}
		h.JobID = jobID.Int64
		records = append(records, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sync history row iteration failed: %w", err)
	}
	return records, nil
}

// ******************************** Private ********************************

func jobSelect() squirrel.SelectBuilder {
	return squirrel.Select(
		consts.QJobID, consts.QJobType, consts.QJobStatus,
		consts.QJobTimeFilter, consts.QJobChanID, consts.QJobTotal,
		consts.QJobProcessed, consts.QJobFailed, consts.QJobErrMsg,
		consts.QJobStartedAt, consts.QJobCompletedAt, consts.QJobCreatedAt,
	).From(consts.DBSyncJobs)
}

func (js *JobStore) getOne(where squirrel.Eq) (*models.SyncJob, bool, error) {
	row := jobSelect().
		Where(where).
		OrderBy(consts.QJobID + " DESC").
		Limit(1).
		RunWith(js.DB).
		QueryRow()

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return j, true, nil
}

func scanJob(row rowScanner) (*models.SyncJob, error) {
	var (
		j           models.SyncJob
		channelID   sql.NullInt64
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&j.ID, &j.JobType, &j.Status,
		&j.TimeFilter, &channelID, &j.TotalItems,
		&j.ProcessedItems, &j.FailedItems, &j.ErrorMessage,
		&startedAt, &completedAt, &j.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync job row: %w", err)
	}
	j.ChannelID = channelID.Int64
	if startedAt.Valid {
		j.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return &j, nil
}
