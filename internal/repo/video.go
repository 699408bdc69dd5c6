package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/Masterminds/squirrel"
)

// VideoStore holds a pointer to the sql.DB.
type VideoStore struct {
	DB *sql.DB
}

// GetVideoStore returns a video store instance with injected database.
func GetVideoStore(db *sql.DB) *VideoStore {
	return &VideoStore{
		DB: db,
	}
}

// GetDB returns the database.
func (vs *VideoStore) GetDB() *sql.DB {
	return vs.DB
}

// Upsert inserts the video or refreshes its catalog metadata when a
// row with the same remote ID exists. Download state columns are never
// touched here, so a refreshed row keeps its local copy markers.
func (vs *VideoStore) Upsert(v *models.Video) (videoID int64, err error) {
	tx, err := vs.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for video %q: %v", v.RemoteID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback video upsert for %q (original error: %v): %v", v.RemoteID, err, rbErr)
			}
		}
	}()

	now := time.Now()

	var existingID int64
	row := squirrel.
		Select(consts.QVidID).
		From(consts.DBVideos).
		Where(squirrel.Eq{consts.QVidRemoteID: v.RemoteID}).
		RunWith(tx).
		QueryRow()

	switch err = row.Scan(&existingID); {
	case err == nil:
		update := squirrel.
			Update(consts.DBVideos).
			Set(consts.QVidTitle, v.Title).
			Set(consts.QVidDescription, v.Description).
			Set(consts.QVidUploadDate, v.UploadDate).
			Set(consts.QVidDuration, v.Duration).
			Set(consts.QVidViewCount, v.ViewCount).
			Set(consts.QVidLikeCount, v.LikeCount).
			Set(consts.QVidCommentCount, v.CommentCount).
			Set(consts.QVidThumbnailURL, v.ThumbnailURL).
			Set(consts.QVidAvailable, true).
			Set(consts.QVidUpdatedAt, now).
			Set(consts.QVidMetaUpdatedAt, now).
			Where(squirrel.Eq{consts.QVidID: existingID}).
			RunWith(tx)

		if _, err = update.Exec(); err != nil {
			return 0, fmt.Errorf("failed to update video %q: %w", v.RemoteID, err)
		}
		videoID = existingID

	case errors.Is(err, sql.ErrNoRows):
		insert := squirrel.
			Insert(consts.DBVideos).
			Columns(
				consts.QVidRemoteID, consts.QVidChanID, consts.QVidTitle,
				consts.QVidDescription, consts.QVidUploadDate, consts.QVidDuration,
				consts.QVidViewCount, consts.QVidLikeCount, consts.QVidCommentCount,
				consts.QVidThumbnailURL, consts.QVidMetaUpdatedAt,
			).
			Values(
				v.RemoteID, v.ChannelID, v.Title,
				v.Description, v.UploadDate, v.Duration,
				v.ViewCount, v.LikeCount, v.CommentCount,
				v.ThumbnailURL, now,
			).
			RunWith(tx)

		var res sql.Result
		if res, err = insert.Exec(); err != nil {
			return 0, fmt.Errorf("failed to insert video %q: %w", v.RemoteID, err)
		}
		if videoID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get inserted video ID: %w", err)
		}

	default:
		return 0, fmt.Errorf("failed to look up video %q: %w", v.RemoteID, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit video upsert: %w", err)
	}

	v.ID = videoID
	return videoID, nil
}

// MarkDownloaded records a finished media download for the video.
func (vs *VideoStore) MarkDownloaded(videoID int64, videoPath, thumbnailPath, quality string, sizeBytes int64) error {
	now := time.Now()
	query := squirrel.
		Update(consts.DBVideos).
		Set(consts.QVidVideoPath, videoPath).
		Set(consts.QVidThumbnailPath, thumbnailPath).
		Set(consts.QVidQuality, quality).
		Set(consts.QVidSizeBytes, sizeBytes).
		Set(consts.QVidDownloaded, true).
		Set(consts.QVidDownloadedAt, now).
		Set(consts.QVidUpdatedAt, now).
		Where(squirrel.Eq{consts.QVidID: videoID}).
		RunWith(vs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to mark video %d downloaded: %w", videoID, err)
	}
	return nil
}

// MarkUnavailable flips is_available off without touching download
// state, preserving any archived local copy.
func (vs *VideoStore) MarkUnavailable(videoID int64) error {
	query := squirrel.
		Update(consts.DBVideos).
		Set(consts.QVidAvailable, false).
		Set(consts.QVidUpdatedAt, time.Now()).
		Where(squirrel.Eq{consts.QVidID: videoID}).
		RunWith(vs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to mark video %d unavailable: %w", videoID, err)
	}
	return nil
}

// GetByID retrieves a single video by local ID.
func (vs *VideoStore) GetByID(videoID int64) (*models.Video, bool, error) {
	return vs.getOne(squirrel.Eq{consts.QVidID: videoID})
}

// GetByRemoteID retrieves a single video by its remote ID.
func (vs *VideoStore) GetByRemoteID(remoteID string) (*models.Video, bool, error) {
	return vs.getOne(squirrel.Eq{consts.QVidRemoteID: remoteID})
}

// ListByChannel retrieves a channel's videos, newest upload first.
func (vs *VideoStore) ListByChannel(channelID int64) ([]*models.Video, error) {
	rows, err := videoSelect().
		Where(squirrel.Eq{consts.QVidChanID: channelID}).
		OrderBy(consts.QVidUploadDate + " DESC").
		RunWith(vs.DB).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query videos for channel %d: %w", channelID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close video rows: %v", err)
		}
	}()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("video row iteration failed: %w", err)
	}
	return videos, nil
}

// CountDownloaded returns how many of a channel's videos already have
// a local copy.
func (vs *VideoStore) CountDownloaded(channelID int64) (int64, error) {
	var n int64
	err := squirrel.
		Select("COUNT(*)").
		From(consts.DBVideos).
		Where(squirrel.Eq{
			consts.QVidChanID:     channelID,
			consts.QVidDownloaded: true,
		}).
		RunWith(vs.DB).
		QueryRow().
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count downloaded videos for channel %d: %w", channelID, err)
	}
	return n, nil
}

// StorageStats summarizes the archive's on-disk footprint.
func (vs *VideoStore) StorageStats() (*models.StorageStats, error) {
	var stats models.StorageStats
	err := vs.DB.QueryRow(`
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN is_downloaded THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN is_downloaded THEN size_bytes ELSE 0 END), 0)
        FROM videos`).
		Scan(&stats.TotalVideos, &stats.DownloadedVideos, &stats.TotalSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compute storage stats: %w", err)
	}
	stats.TotalSizeHuman = humanBytes(stats.TotalSizeBytes)
	return &stats, nil
}

// ******************************** Private ********************************

func videoSelect() squirrel.SelectBuilder {
	return squirrel.Select(
		consts.QVidID, consts.QVidRemoteID, consts.QVidChanID,
		consts.QVidTitle, consts.QVidDescription, consts.QVidUploadDate,
		consts.QVidDuration, consts.QVidViewCount, consts.QVidLikeCount,
		consts.QVidCommentCount, consts.QVidThumbnailURL, consts.QVidVideoPath,
		consts.QVidThumbnailPath, consts.QVidQuality, consts.QVidSizeBytes,
		consts.QVidDownloaded, consts.QVidAvailable, consts.QVidCreatedAt,
		consts.QVidUpdatedAt, consts.QVidMetaUpdatedAt, consts.QVidDownloadedAt,
	).From(consts.DBVideos)
}

func (vs *VideoStore) getOne(where squirrel.Eq) (*models.Video, bool, error) {
	row := videoSelect().
		Where(where).
		RunWith(vs.DB).
		QueryRow()

	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var (
		v             models.Video
		uploadDate    sql.NullTime
		metaUpdatedAt sql.NullTime
		downloadedAt  sql.NullTime
	)
	if err := row.Scan(
		&v.ID, &v.RemoteID, &v.ChannelID,
		&v.Title, &v.Description, &uploadDate,
		&v.Duration, &v.ViewCount, &v.LikeCount,
		&v.CommentCount, &v.ThumbnailURL, &v.VideoPath,
		&v.ThumbnailPath, &v.Quality, &v.SizeBytes,
		&v.Downloaded, &v.Available, &v.CreatedAt,
		&v.UpdatedAt, &metaUpdatedAt, &downloadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan video row: %w", err)
	}
	if uploadDate.Valid {
		v.UploadDate = uploadDate.Time
	}
	if metaUpdatedAt.Valid {
		v.MetadataUpdatedAt = &metaUpdatedAt.Time
	}
	if downloadedAt.Valid {
		v.DownloadedAt = &downloadedAt.Time
	}
	return &v, nil
}

// humanBytes renders a byte count as a short human-readable string.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
