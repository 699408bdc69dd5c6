package repo

import (
	"database/sql"
	"fmt"

	"archivarr/internal/domain/consts"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/Masterminds/squirrel"
)

// CommentStore holds a pointer to the sql.DB.
type CommentStore struct {
	DB *sql.DB
}

// GetCommentStore returns a comment store instance with injected database.
func GetCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{
		DB: db,
	}
}

// GetDB returns the database.
func (cs *CommentStore) GetDB() *sql.DB {
	return cs.DB
}

// UpsertBatch writes a video's comments in one transaction. Existing
// rows are matched by remote comment ID and their counts refreshed, so
// repeated syncs never duplicate threads. The slice must list each
// top-level comment before its replies.
func (cs *CommentStore) UpsertBatch(videoID int64, comments []*models.Comment) (err error) {
	if len(comments) == 0 {
		return nil
	}

	tx, err := cs.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for comments of video %d: %v", videoID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback comment batch for video %d (original error: %v): %v", videoID, err, rbErr)
			}
		}
	}()

	// Local IDs assigned in this batch, so replies can reference a
	// parent inserted moments earlier.
	batchIDs := make(map[string]int64, len(comments))

	for _, c := range comments {
		var parentID any
		if c.ParentID != 0 {
			parentID = c.ParentID
		} else if c.ParentRemoteID != "" {
			if id, ok := batchIDs[c.ParentRemoteID]; ok {
				parentID = id
			} else if id, found, lookupErr := cs.lookupID(tx, c.ParentRemoteID); lookupErr != nil {
				err = lookupErr
				return err
			} else if found {
				parentID = id
			}
		}

		var existingID int64
		row := squirrel.
			Select(consts.QComID).
			From(consts.DBComments).
			Where(squirrel.Eq{consts.QComRemoteID: c.RemoteID}).
			RunWith(tx).
			QueryRow()

		scanErr := row.Scan(&existingID)
		switch {
		case scanErr == nil:
			update := squirrel.
				Update(consts.DBComments).
				Set(consts.QComText, c.Text).
				Set(consts.QComLikeCount, c.LikeCount).
				Set(consts.QComReplyCount, c.ReplyCount).
				Where(squirrel.Eq{consts.QComID: existingID}).
				RunWith(tx)
			if _, err = update.Exec(); err != nil {
				return fmt.Errorf("failed to update comment %q: %w", c.RemoteID, err)
			}
			batchIDs[c.RemoteID] = existingID

		case scanErr == sql.ErrNoRows:
			insert := squirrel.
				Insert(consts.DBComments).
				Columns(
					consts.QComRemoteID, consts.QComVidID, consts.QComParentID,
					consts.QComAuthor, consts.QComAuthorChan, consts.QComAuthorImage,
					consts.QComText, consts.QComLikeCount, consts.QComReplyCount,
					consts.QComPublishedAt, consts.QComTopLevel,
				).
				Values(
					c.RemoteID, videoID, parentID,
					c.AuthorName, c.AuthorChannelID, c.AuthorImageURL,
					c.Text, c.LikeCount, c.ReplyCount,
					c.PublishedAt, c.TopLevel,
				).
				RunWith(tx)

			var res sql.Result
			if res, err = insert.Exec(); err != nil {
				return fmt.Errorf("failed to insert comment %q: %w", c.RemoteID, err)
			}
			var newID int64
			if newID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("failed to get inserted comment ID: %w", err)
			}
			batchIDs[c.RemoteID] = newID

		default:
			err = fmt.Errorf("failed to look up comment %q: %w", c.RemoteID, scanErr)
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comment batch: %w", err)
	}
	return nil
}

// CountByVideo returns how many comments are stored for the video.
func (cs *CommentStore) CountByVideo(videoID int64) (int64, error) {
	var n int64
	err := squirrel.
		Select("COUNT(*)").
		From(consts.DBComments).
		Where(squirrel.Eq{consts.QComVidID: videoID}).
		RunWith(cs.DB).
		QueryRow().
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments for video %d: %w", videoID, err)
	}
	return n, nil
}

// ******************************** Private ********************************

func (cs *CommentStore) lookupID(tx *sql.Tx, remoteID string) (int64, bool, error) {
	var id int64
	err := squirrel.
		Select(consts.QComID).
		From(consts.DBComments).
		Where(squirrel.Eq{consts.QComRemoteID: remoteID}).
		RunWith(tx).
		QueryRow().
		Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up parent comment %q: %w", remoteID, err)
	}
	return id, true, nil
}
