// Package contracts defines interfaces that decouple the application layer from storage implementations.
package contracts

import (
	"database/sql"

	"archivarr/internal/models"
)

// Store allows access to the main store repo methods.
type Store interface {
	ChannelStore() ChannelStore
	VideoStore() VideoStore
	CommentStore() CommentStore
	QueueStore() QueueStore
	JobStore() JobStore
	ErrorLogStore() ErrorLogStore
	ConfigStore() ConfigStore
}

// ChannelStore allows access to channel repo methods.
type ChannelStore interface {
	GetDB() *sql.DB

	// Add operations.
	Upsert(c *models.Channel) (int64, error)

	// Update operations.
	UpdateAPIKey(channelID int64, apiKey string) error

	// Delete operations.
	Delete(channelID int64) error

	// 'Get' operations.
	GetByID(channelID int64) (*models.Channel, bool, error)
	GetByRemoteID(remoteID string) (*models.Channel, bool, error)
	GetAll() ([]*models.Channel, error)
}

// VideoStore allows access to video repo methods.
type VideoStore interface {
	GetDB() *sql.DB

	// Add operations.
	Upsert(v *models.Video) (videoID int64, err error)

	// Update operations.
	MarkDownloaded(videoID int64, videoPath, thumbnailPath, quality string, sizeBytes int64) error
	MarkUnavailable(videoID int64) error

	// 'Get' operations.
	GetByID(videoID int64) (*models.Video, bool, error)
	GetByRemoteID(remoteID string) (*models.Video, bool, error)
	ListByChannel(channelID int64) ([]*models.Video, error)
	CountDownloaded(channelID int64) (int64, error)
	StorageStats() (*models.StorageStats, error)
}

// CommentStore allows access to comment repo methods.
type CommentStore interface {
	GetDB() *sql.DB

	// Add operations.
	UpsertBatch(videoID int64, comments []*models.Comment) error

	// 'Get' operations.
	CountByVideo(videoID int64) (int64, error)
}

// QueueStore allows access to download queue repo methods.
type QueueStore interface {
	GetDB() *sql.DB

	// Add operations.
	Enqueue(videoID, syncJobID int64, priority, maxRetries int) (queueID int64, enqueued bool, err error)

	// Claim operations.
	DequeueNext() (*models.QueueItem, error)

	// Update operations.
	UpdateProgress(queueID int64, progress float64, speed, eta string) error
	Requeue(queueID int64, retryCount int, errMsg string) error
	MarkCompleted(queueID int64) error
	MarkFailed(queueID int64, errMsg string) error
	ResetInterrupted() (int64, error)

	// Delete operations.
	Delete(queueID int64) error

	// 'Get' operations.
	List(statuses ...string) ([]*models.QueueItem, error)
	PendingCount() (int64, error)
}

// JobStore allows access to sync job repo methods.
type JobStore interface {
	GetDB() *sql.DB

	// Add operations.
	CreateRunning(jobType, timeFilter string, channelID int64) (*models.SyncJob, error)
	AddHistory(h *models.SyncHistory) error

	// Update operations.
	UpdateCounts(jobID int64, total, processed, failed int) error
	Finish(jobID int64, status, errMsg string) error

	// 'Get' operations.
	GetByID(jobID int64) (*models.SyncJob, bool, error)
	GetRunning() (*models.SyncJob, bool, error)
	ListRecent(limit int) ([]*models.SyncJob, error)
	ListHistory(limit int) ([]*models.SyncHistory, error)
}

// ErrorLogStore allows access to error log repo methods.
type ErrorLogStore interface {
	GetDB() *sql.DB

	Add(e *models.ErrorLog) error
	List(limit int) ([]*models.ErrorLog, error)
	Clear() error
}

// ConfigStore allows access to sync configuration repo methods.
type ConfigStore interface {
	GetDB() *sql.DB

	Get() (*models.SyncConfig, error)
	Update(c *models.SyncConfig) error
}
