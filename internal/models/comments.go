package models

import "time"

// Comment is one archived comment. ParentID is zero for top-level
// comments; replies nest exactly one level deep.
type Comment struct {
	ID              int64     `json:"id" db:"id"`
	RemoteID        string    `json:"remote_comment_id" db:"remote_comment_id"`
	VideoID         int64     `json:"video_id" db:"video_id"`
	ParentID        int64     `json:"parent_comment_id,omitempty" db:"parent_comment_id"`
	AuthorName      string    `json:"author_name" db:"author_name"`
	AuthorChannelID string    `json:"author_channel_id" db:"author_channel_id"`
	AuthorImageURL  string    `json:"author_profile_image_url" db:"author_profile_image_url"`
	Text            string    `json:"text_original" db:"text_original"`
	LikeCount       int64     `json:"like_count" db:"like_count"`
	ReplyCount      int64     `json:"reply_count" db:"reply_count"`
	PublishedAt     time.Time `json:"published_at" db:"published_at"`
	TopLevel        bool      `json:"is_top_level" db:"is_top_level"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	// Remote ID of the parent thread, resolved to ParentID on write.
	ParentRemoteID string `json:"-" db:"-"`
}
