package models

import "time"

// Channel describes a remote channel being archived.
//
// Matches the order of the DB table, do not alter.
type Channel struct {
	ID              int64     `json:"id" db:"id"`
	RemoteID        string    `json:"remote_channel_id" db:"remote_channel_id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	CustomURL       string    `json:"custom_url" db:"custom_url"`
	SubscriberCount int64     `json:"subscriber_count" db:"subscriber_count"`
	VideoCount      int64     `json:"video_count" db:"video_count"`
	ViewCount       int64     `json:"view_count" db:"view_count"`
	AvatarURL       string    `json:"avatar_url" db:"avatar_url"`
	BannerURL       string    `json:"banner_url" db:"banner_url"`
	APIKey          string    `json:"-" db:"api_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
