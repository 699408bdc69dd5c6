package models

import "archivarr/internal/domain/consts"

// SyncProgress is the live view of the current job. A zero JobID means
// the system is idle.
type SyncProgress struct {
	JobID           int64          `json:"job_id,omitempty"`
	Status          string         `json:"status"`
	JobType         consts.JobType `json:"job_type,omitempty"`
	ChannelID       int64          `json:"channel_id,omitempty"`
	TotalItems      int            `json:"total_items"`
	ProcessedItems  int            `json:"processed_items"`
	CurrentItem     string         `json:"current_item,omitempty"`
	PercentComplete float64        `json:"percent_complete"`
	Error           string         `json:"error,omitempty"`
}

// IdleSyncProgress is the snapshot value when no job is running.
var IdleSyncProgress = SyncProgress{Status: consts.TaskStateIdle}

// DownloadProgress is the live view of one in-flight download.
type DownloadProgress struct {
	VideoID  int64   `json:"video_id"`
	RemoteID string  `json:"remote_id"`
	Title    string  `json:"title"`
	Progress float64 `json:"progress"`
	Speed    string  `json:"speed,omitempty"`
	ETA      string  `json:"eta,omitempty"`
	Status   string  `json:"status"`
}

// Snapshot is the retained last-broadcast state replayed to late
// joiners.
type Snapshot struct {
	Sync      SyncProgress       `json:"sync"`
	Downloads []DownloadProgress `json:"downloads"`
}

// Event is one typed message on the real-time stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
