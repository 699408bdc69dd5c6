package repo

import (
	"database/sql"
	"fmt"

	"archivarr/internal/domain/consts"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/Masterminds/squirrel"
)

// ErrorLogStore holds a pointer to the sql.DB.
type ErrorLogStore struct {
	DB *sql.DB
}

// GetErrorLogStore returns an error log store instance with injected database.
func GetErrorLogStore(db *sql.DB) *ErrorLogStore {
	return &ErrorLogStore{
		DB: db,
	}
}

// GetDB returns the database.
func (es *ErrorLogStore) GetDB() *sql.DB {
	return es.DB
}

// Add appends one failure record.
func (es *ErrorLogStore) Add(e *models.ErrorLog) error {
	var jobID, videoID any
	if e.JobID != 0 {
		jobID = e.JobID
	}
	if e.VideoID != 0 {
		videoID = e.VideoID
	}

	res, err := squirrel.
		Insert(consts.DBErrorLogs).
		Columns(consts.QErrJobID, consts.QErrVidID, consts.QErrType, consts.QErrMsg).
		Values(jobID, videoID, e.ErrorType, e.ErrorMessage).
		RunWith(es.DB).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert error log: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get inserted error log ID: %w", err)
	}
	return nil
}

// List retrieves failure records, newest first.
func (es *ErrorLogStore) List(limit int) ([]*models.ErrorLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := squirrel.
		Select(
			consts.QErrID, consts.QErrJobID, consts.QErrVidID,
			consts.QErrType, consts.QErrMsg, consts.QErrCreatedAt,
		).
		From(consts.DBErrorLogs).
		OrderBy(consts.QErrCreatedAt+" DESC", consts.QErrID+" DESC").
		Limit(uint64(limit)).
		RunWith(es.DB).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close error log rows: %v", err)
		}
	}()

	var entries []*models.ErrorLog
	for rows.Next() {
		var (
			e       models.ErrorLog
			jobID   sql.NullInt64
			videoID sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &jobID, &videoID, &e.ErrorType, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan error log row: %w", err)
		}
		e.JobID = jobID.Int64
		e.VideoID = videoID.Int64
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error log row iteration failed: %w", err)
	}
	return entries, nil
}

// Clear deletes all failure records.
func (es *ErrorLogStore) Clear() error {
	if _, err := squirrel.Delete(consts.DBErrorLogs).RunWith(es.DB).Exec(); err != nil {
		return fmt.Errorf("failed to clear error logs: %w", err)
	}
	return nil
}
