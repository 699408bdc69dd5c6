package models

import "time"

// Video contains archive state for one remote video.
//
// Downloaded is set once by the download worker and is never unset by
// remote-state changes: a removed or private source flips Available
// only, leaving the local copy intact.
//
// Matches the order of the DB table, do not alter.
type Video struct {
	ID                int64      `json:"id" db:"id"`
	RemoteID          string     `json:"remote_video_id" db:"remote_video_id"`
	ChannelID         int64      `json:"channel_id" db:"channel_id"`
	Title             string     `json:"title" db:"title"`
	Description       string     `json:"description" db:"description"`
	UploadDate        time.Time  `json:"upload_date" db:"upload_date"`
	Duration          int64      `json:"duration" db:"duration"`
	ViewCount         int64      `json:"view_count" db:"view_count"`
	LikeCount         int64      `json:"like_count" db:"like_count"`
	CommentCount      int64      `json:"comment_count" db:"comment_count"`
	ThumbnailURL      string     `json:"thumbnail_url" db:"thumbnail_url"`
	VideoPath         string     `json:"video_path" db:"video_path"`
	ThumbnailPath     string     `json:"thumbnail_path" db:"thumbnail_path"`
	Quality           string     `json:"quality" db:"quality"`
	SizeBytes         int64      `json:"size_bytes" db:"size_bytes"`
	Downloaded        bool       `json:"is_downloaded" db:"is_downloaded"`
	Available         bool       `json:"is_available" db:"is_available"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
	MetadataUpdatedAt *time.Time `json:"metadata_updated_at" db:"metadata_updated_at"`
	DownloadedAt      *time.Time `json:"downloaded_at" db:"downloaded_at"`
}

// StorageStats summarizes archived media on disk.
type StorageStats struct {
	TotalVideos      int64  `json:"total_videos"`
	DownloadedVideos int64  `json:"downloaded_videos"`
	TotalSizeBytes   int64  `json:"total_size_bytes"`
	TotalSizeHuman   string `json:"total_size_formatted"`
}
