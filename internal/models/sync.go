package models

import (
	"time"

	"archivarr/internal/domain/consts"
)

// SyncJob is one end-to-end run of catalog enumeration plus optional
// downloads for a channel. At most one job has status=running at any
// instant; terminal states are immutable.
type SyncJob struct {
	ID             int64             `json:"id" db:"id"`
	JobType        consts.JobType    `json:"job_type" db:"job_type"`
	Status         consts.JobStatus  `json:"status" db:"status"`
	TimeFilter     consts.TimeFilter `json:"time_filter" db:"time_filter"`
	ChannelID      int64             `json:"channel_id" db:"channel_id"`
	TotalItems     int               `json:"total_items" db:"total_items"`
	ProcessedItems int               `json:"processed_items" db:"processed_items"`
	FailedItems    int               `json:"failed_items" db:"failed_items"`
	ErrorMessage   string            `json:"error_message,omitempty" db:"error_message"`
	StartedAt      *time.Time        `json:"started_at" db:"started_at"`
	CompletedAt    *time.Time        `json:"completed_at" db:"completed_at"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// Terminal reports whether the job has reached an immutable end state.
func (j *SyncJob) Terminal() bool {
	return j.Status != consts.JobStatusRunning
}

// QueueItem is one video's pending/active/completed download task.
type QueueItem struct {
	ID            int64              `json:"id" db:"id"`
	VideoID       int64              `json:"video_id" db:"video_id"`
	JobID         int64              `json:"sync_job_id" db:"sync_job_id"`
	Status        consts.QueueStatus `json:"status" db:"status"`
	Priority      int                `json:"priority" db:"priority"`
	Progress      float64            `json:"progress" db:"progress"`
	Speed         string             `json:"download_speed" db:"download_speed"`
	ETA           string             `json:"eta" db:"eta"`
	ErrorMessage  string             `json:"error_message,omitempty" db:"error_message"`
	RetryCount    int                `json:"retry_count" db:"retry_count"`
	MaxRetries    int                `json:"max_retries" db:"max_retries"`
	NextAttemptAt time.Time          `json:"next_attempt_at" db:"next_attempt_at"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
	StartedAt     *time.Time         `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time         `json:"completed_at" db:"completed_at"`

	// Joined from the videos table for display.
	RemoteVideoID string `json:"remote_video_id" db:"-"`
	VideoTitle    string `json:"video_title" db:"-"`
}

// SyncConfig is the singleton sync configuration row.
type SyncConfig struct {
	ID              int64          `json:"id" db:"id"`
	AutoSyncEnabled bool           `json:"auto_sync_enabled" db:"auto_sync_enabled"`
	AutoSyncTime    string         `json:"auto_sync_time" db:"auto_sync_time"` // "HH:MM", local time
	AutoSyncType    consts.JobType `json:"auto_sync_type" db:"auto_sync_type"`
	MaxVideoQuality string         `json:"max_video_quality" db:"max_video_quality"`
	SyncComments    bool           `json:"sync_comments" db:"sync_comments"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// DefaultSyncConfig is written when no config row exists yet.
var DefaultSyncConfig = SyncConfig{
	AutoSyncEnabled: false,
	AutoSyncType:    consts.JobTypeNewOnly,
	MaxVideoQuality: "1080p",
	SyncComments:    true,
}

// ErrorLog is one append-only failure record.
type ErrorLog struct {
	ID           int64     `json:"id" db:"id"`
	JobID        int64     `json:"sync_job_id" db:"sync_job_id"`
	VideoID      int64     `json:"video_id,omitempty" db:"video_id"`
	ErrorType    string    `json:"error_type" db:"error_type"`
	ErrorMessage string    `json:"error_message" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// SyncHistory records one completed job's totals.
type SyncHistory struct {
	ID           int64     `json:"id" db:"id"`
	JobID        int64     `json:"sync_job_id" db:"sync_job_id"`
	VideosSynced int       `json:"videos_synced" db:"videos_synced"`
	Duration     int64     `json:"duration_seconds" db:"duration_seconds"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
