package database

import (
	"database/sql"
	"fmt"
)

// initChannelsTable initializes the channels table.
func initChannelsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS channels (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        remote_channel_id TEXT NOT NULL UNIQUE,
        title TEXT NOT NULL,
        description TEXT DEFAULT '',
        custom_url TEXT DEFAULT '',
        subscriber_count INTEGER DEFAULT 0,
        video_count INTEGER DEFAULT 0,
        view_count INTEGER DEFAULT 0,
        avatar_url TEXT DEFAULT '',
        banner_url TEXT DEFAULT '',
        api_key TEXT DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_channels_remote ON channels(remote_channel_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create channels table: %w", err)
	}
	return nil
}

// initVideosTable initializes the videos table.
func initVideosTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS videos (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        remote_video_id TEXT NOT NULL UNIQUE,
        channel_id INTEGER REFERENCES channels(id) ON DELETE CASCADE,
        title TEXT NOT NULL DEFAULT '',
        description TEXT DEFAULT '',
        upload_date TIMESTAMP,
        duration INTEGER DEFAULT 0,
        view_count INTEGER DEFAULT 0,
        like_count INTEGER DEFAULT 0,
        comment_count INTEGER DEFAULT 0,
        thumbnail_url TEXT DEFAULT '',
        video_path TEXT DEFAULT '',
        thumbnail_path TEXT DEFAULT '',
        quality TEXT DEFAULT '',
        size_bytes INTEGER DEFAULT 0,
        is_downloaded INTEGER DEFAULT 0,
        is_available INTEGER DEFAULT 1,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        metadata_updated_at TIMESTAMP,
        downloaded_at TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_videos_channel ON videos(channel_id);
    CREATE INDEX IF NOT EXISTS idx_videos_remote ON videos(remote_video_id);
    CREATE INDEX IF NOT EXISTS idx_videos_downloaded ON videos(is_downloaded);
    CREATE INDEX IF NOT EXISTS idx_videos_upload_date ON videos(upload_date);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create videos table: %w", err)
	}
	return nil
}

// initCommentsTable initializes the comments table.
func initCommentsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS comments (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        remote_comment_id TEXT NOT NULL UNIQUE,
        video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
        parent_comment_id INTEGER REFERENCES comments(id) ON DELETE CASCADE,
        author_name TEXT DEFAULT '',
        author_channel_id TEXT DEFAULT '',
        author_profile_image_url TEXT DEFAULT '',
        text_original TEXT NOT NULL DEFAULT '',
        like_count INTEGER DEFAULT 0,
        reply_count INTEGER DEFAULT 0,
        published_at TIMESTAMP,
        is_top_level INTEGER DEFAULT 1,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_comments_video ON comments(video_id);
    CREATE INDEX IF NOT EXISTS idx_comments_remote ON comments(remote_comment_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}
	return nil
}

// initSyncJobsTable initializes the sync_jobs table.
func initSyncJobsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS sync_jobs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        job_type TEXT NOT NULL,
        status TEXT NOT NULL DEFAULT 'running'
            CHECK(status IN ('running', 'completed', 'failed', 'cancelled')),
        time_filter TEXT DEFAULT 'all',
        channel_id INTEGER REFERENCES channels(id),
        total_items INTEGER DEFAULT 0,
        processed_items INTEGER DEFAULT 0,
        failed_items INTEGER DEFAULT 0,
        error_message TEXT DEFAULT '',
        started_at TIMESTAMP,
        completed_at TIMESTAMP,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_sync_jobs_status ON sync_jobs(status);
    CREATE INDEX IF NOT EXISTS idx_sync_jobs_created ON sync_jobs(created_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create sync_jobs table: %w", err)
	}
	return nil
}

// initQueueTable initializes the download_queue table.
func initQueueTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS download_queue (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
        sync_job_id INTEGER REFERENCES sync_jobs(id) ON DELETE SET NULL,
        status TEXT NOT NULL DEFAULT 'queued'
            CHECK(status IN ('queued', 'downloading', 'completed', 'failed')),
        priority INTEGER DEFAULT 0,
        progress REAL DEFAULT 0,
        download_speed TEXT DEFAULT '',
        eta TEXT DEFAULT '',
        error_message TEXT DEFAULT '',
        retry_count INTEGER DEFAULT 0,
        max_retries INTEGER DEFAULT 3,
        next_attempt_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
        started_at TIMESTAMP,
        completed_at TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_queue_status ON download_queue(status);
    CREATE INDEX IF NOT EXISTS idx_queue_video ON download_queue(video_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create download_queue table: %w", err)
	}
	return nil
}

// initSyncConfigTable initializes the sync_config table.
func initSyncConfigTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS sync_config (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        auto_sync_enabled INTEGER DEFAULT 0,
        auto_sync_time TEXT DEFAULT '',
        auto_sync_type TEXT DEFAULT 'new_only',
        max_video_quality TEXT DEFAULT '1080p',
        sync_comments INTEGER DEFAULT 1,
        updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create sync_config table: %w", err)
	}
	return nil
}

// initErrorLogsTable initializes the error_logs table.
func initErrorLogsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS error_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        sync_job_id INTEGER REFERENCES sync_jobs(id) ON DELETE SET NULL,
        video_id INTEGER REFERENCES videos(id) ON DELETE SET NULL,
        error_type TEXT DEFAULT '',
        error_message TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_error_logs_created ON error_logs(created_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create error_logs table: %w", err)
	}
	return nil
}

// initHistoryTable initializes the sync_history table.
func initHistoryTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS sync_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        sync_job_id INTEGER REFERENCES sync_jobs(id) ON DELETE SET NULL,
        videos_synced INTEGER DEFAULT 0,
        duration_seconds INTEGER DEFAULT 0,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create sync_history table: %w", err)
	}
	return nil
}
