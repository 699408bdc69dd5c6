package consts

// Tables
const (
	DBChannels  = "channels"
	DBVideos    = "videos"
	DBComments  = "comments"
	DBSyncJobs  = "sync_jobs"
	DBQueue     = "download_queue"
	DBSyncCfg   = "sync_config"
	DBErrorLogs = "error_logs"
	DBHistory   = "sync_history"
)

// Channels
const (
	QChanID          = "id"
	QChanRemoteID    = "remote_channel_id"
	QChanTitle       = "title"
	QChanDescription = "description"
	QChanCustomURL   = "custom_url"
	QChanSubscribers = "subscriber_count"
	QChanVideoCount  = "video_count"
	QChanViewCount   = "view_count"
	QChanAvatarURL   = "avatar_url"
	QChanBannerURL   = "banner_url"
	QChanAPIKey      = "api_key"
	QChanCreatedAt   = "created_at"
	QChanUpdatedAt   = "updated_at"
)

// Videos
const (
	QVidID            = "id"
	QVidRemoteID      = "remote_video_id"
	QVidChanID        = "channel_id"
	QVidTitle         = "title"
	QVidDescription   = "description"
	QVidUploadDate    = "upload_date"
	QVidDuration      = "duration"
	QVidViewCount     = "view_count"
	QVidLikeCount     = "like_count"
	QVidCommentCount  = "comment_count"
	QVidThumbnailURL  = "thumbnail_url"
	QVidVideoPath     = "video_path"
	QVidThumbnailPath = "thumbnail_path"
	QVidQuality       = "quality"
	QVidSizeBytes     = "size_bytes"
	QVidDownloaded    = "is_downloaded"
	QVidAvailable     = "is_available"
	QVidCreatedAt     = "created_at"
	QVidUpdatedAt     = "updated_at"
	QVidMetaUpdatedAt = "metadata_updated_at"
	QVidDownloadedAt  = "downloaded_at"
)

// Comments
const (
	QComID          = "id"
	QComRemoteID    = "remote_comment_id"
	QComVidID       = "video_id"
	QComParentID    = "parent_comment_id"
	QComAuthor      = "author_name"
	QComAuthorChan  = "author_channel_id"
	QComAuthorImage = "author_profile_image_url"
	QComText        = "text_original"
	QComLikeCount   = "like_count"
	QComReplyCount  = "reply_count"
	QComPublishedAt = "published_at"
	QComTopLevel    = "is_top_level"
	QComCreatedAt   = "created_at"
)

// Sync jobs
const (
	QJobID          = "id"
	QJobType        = "job_type"
	QJobStatus      = "status"
	QJobTimeFilter  = "time_filter"
	QJobChanID      = "channel_id"
	QJobTotal       = "total_items"
	QJobProcessed   = "processed_items"
	QJobFailed      = "failed_items"
	QJobErrMsg      = "error_message"
	QJobStartedAt   = "started_at"
	QJobCompletedAt = "completed_at"
	QJobCreatedAt   = "created_at"
)

// Download queue
const (
	QDLID            = "id"
	QDLVidID         = "video_id"
	QDLJobID         = "sync_job_id"
	QDLStatus        = "status"
	QDLPriority      = "priority"
	QDLProgress      = "progress"
	QDLSpeed         = "download_speed"
	QDLETA           = "eta"
	QDLErrMsg        = "error_message"
	QDLRetryCount    = "retry_count"
	QDLMaxRetries    = "max_retries"
	QDLNextAttemptAt = "next_attempt_at"
	QDLCreatedAt     = "created_at"
	QDLStartedAt     = "started_at"
	QDLCompletedAt   = "completed_at"
)

// Sync config
const (
	QCfgID           = "id"
	QCfgAutoEnabled  = "auto_sync_enabled"
	QCfgAutoTime     = "auto_sync_time"
	QCfgAutoType     = "auto_sync_type"
	QCfgMaxQuality   = "max_video_quality"
	QCfgSyncComments = "sync_comments"
	QCfgUpdatedAt    = "updated_at"
)

// Error logs
const (
	QErrID        = "id"
	QErrJobID     = "sync_job_id"
	QErrVidID     = "video_id"
	QErrType      = "error_type"
	QErrMsg       = "error_message"
	QErrCreatedAt = "created_at"
)

// Sync history
const (
	QHistID        = "id"
	QHistJobID     = "sync_job_id"
	QHistVideos    = "videos_synced"
	QHistDuration  = "duration_seconds"
	QHistCreatedAt = "created_at"
)
