// Package consts holds various global, unchanging values.
package consts

// JobType identifies what a sync job fetches and downloads.
type JobType string

const (
	JobTypeNewOnly      JobType = "new_only"
	JobTypeFull         JobType = "full"
	JobTypeMetadataOnly JobType = "metadata_only"
	JobTypeCommentsOnly JobType = "comments_only"
)

// ValidJobTypes maps the job types accepted on job creation.
var ValidJobTypes = map[JobType]bool{
	JobTypeNewOnly:      true,
	JobTypeFull:         true,
	JobTypeMetadataOnly: true,
	JobTypeCommentsOnly: true,
}

// JobStatus holds constant sync job status strings.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// QueueStatus holds constant download queue status strings.
type QueueStatus string

const (
	QueueStatusQueued      QueueStatus = "queued"
	QueueStatusDownloading QueueStatus = "downloading"
	QueueStatusCompleted   QueueStatus = "completed"
	QueueStatusFailed      QueueStatus = "failed"
)

// TimeFilter scopes a sync run to a lower bound on publish date.
type TimeFilter string

const (
	TimeFilterWeek  TimeFilter = "week"
	TimeFilterMonth TimeFilter = "month"
	TimeFilterYear  TimeFilter = "year"
	TimeFilterAll   TimeFilter = "all"
)

// Task states reported in the live snapshot.
const (
	TaskStateIdle        = "idle"
	TaskStateSyncing     = "syncing"
	TaskStateDownloading = "downloading"
)

// Event types pushed over the real-time stream.
const (
	EventConnected        = "connected"
	EventSyncProgress     = "sync_progress"
	EventDownloadProgress = "download_progress"
	EventSyncCompleted    = "sync_completed"
	EventSyncError        = "sync_error"
	EventSyncCancelled    = "sync_cancelled"
	EventPong             = "pong"
)

// Download error classifications written to the error log.
const (
	ErrTypeTransient = "transient"
	ErrTypePermanent = "permanent"
	ErrTypeStorage   = "storage"
	ErrTypeSync      = "sync"
)

// Per-video storage layout inside the storage root.
const (
	VideosSubdir      = "videos"
	VideoFileName     = "video.mp4"
	ThumbnailFileName = "thumbnail.jpg"
)
