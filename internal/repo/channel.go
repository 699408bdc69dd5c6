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

// ChannelStore holds a pointer to the sql.DB.
type ChannelStore struct {
	DB *sql.DB
}

// GetChannelStore returns a channel store instance with injected database.
func GetChannelStore(db *sql.DB) *ChannelStore {
	return &ChannelStore{
		DB: db,
	}
}

// GetDB returns the database.
func (cs *ChannelStore) GetDB() *sql.DB {
	return cs.DB
}

// Upsert inserts the channel or refreshes its metadata when a row with
// the same remote ID already exists. Returns the local channel ID.
func (cs *ChannelStore) Upsert(c *models.Channel) (channelID int64, err error) {
	tx, err := cs.DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed for channel %q: %v", c.RemoteID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback channel upsert for %q (original error: %v): %v", c.RemoteID, err, rbErr)
			}
		}
	}()

	var existingID int64
	row := squirrel.
		Select(consts.QChanID).
		From(consts.DBChannels).
		Where(squirrel.Eq{consts.QChanRemoteID: c.RemoteID}).
		RunWith(tx).
		QueryRow()

	switch err = row.Scan(&existingID); {
	case err == nil:
		update := squirrel.
			Update(consts.DBChannels).
			Set(consts.QChanTitle, c.Title).
			Set(consts.QChanDescription, c.Description).
			Set(consts.QChanCustomURL, c.CustomURL).
			Set(consts.QChanSubscribers, c.SubscriberCount).
			Set(consts.QChanVideoCount, c.VideoCount).
			Set(consts.QChanViewCount, c.ViewCount).
			Set(consts.QChanAvatarURL, c.AvatarURL).
			Set(consts.QChanBannerURL, c.BannerURL).
			Set(consts.QChanUpdatedAt, time.Now()).
			Where(squirrel.Eq{consts.QChanID: existingID}).
			RunWith(tx)

		if _, err = update.Exec(); err != nil {
			return 0, fmt.Errorf("failed to update channel %q: %w", c.RemoteID, err)
		}
		channelID = existingID

	case errors.Is(err, sql.ErrNoRows):
		insert := squirrel.
			Insert(consts.DBChannels).
			Columns(
				consts.QChanRemoteID, consts.QChanTitle, consts.QChanDescription,
				consts.QChanCustomURL, consts.QChanSubscribers, consts.QChanVideoCount,
				consts.QChanViewCount, consts.QChanAvatarURL, consts.QChanBannerURL,
				consts.QChanAPIKey,
			).
			Values(
				c.RemoteID, c.Title, c.Description,
				c.CustomURL, c.SubscriberCount, c.VideoCount,
				c.ViewCount, c.AvatarURL, c.BannerURL,
				c.APIKey,
			).
			RunWith(tx)

		var res sql.Result
		if res, err = insert.Exec(); err != nil {
			return 0, fmt.Errorf("failed to insert channel %q: %w", c.RemoteID, err)
		}
		if channelID, err = res.LastInsertId(); err != nil {
			return 0, fmt.Errorf("failed to get inserted channel ID: %w", err)
		}

	default:
		return 0, fmt.Errorf("failed to look up channel %q: %w", c.RemoteID, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit channel upsert: %w", err)
	}

	c.ID = channelID
	return channelID, nil
}

// UpdateAPIKey sets the per-channel catalog API key override. An empty
// key clears the override so the global key applies again.
func (cs *ChannelStore) UpdateAPIKey(channelID int64, apiKey string) error {
	query := squirrel.
		Update(consts.DBChannels).
		Set(consts.QChanAPIKey, apiKey).
		Set(consts.QChanUpdatedAt, time.Now()).
		Where(squirrel.Eq{consts.QChanID: channelID}).
		RunWith(cs.DB)

	res, err := query.Exec()
	if err != nil {
		return fmt.Errorf("failed to update API key for channel %d: %w", channelID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("channel %d does not exist", channelID)
	}
	return nil
}

// Delete removes a channel; videos and comments cascade.
func (cs *ChannelStore) Delete(channelID int64) error {
	query := squirrel.
		Delete(consts.DBChannels).
		Where(squirrel.Eq{consts.QChanID: channelID}).
		RunWith(cs.DB)

	res, err := query.Exec()
	if err != nil {
		return fmt.Errorf("failed to delete channel %d: %w", channelID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("channel %d does not exist", channelID)
	}
	return nil
}

// GetByID retrieves a single channel by local ID.
func (cs *ChannelStore) GetByID(channelID int64) (*models.Channel, bool, error) {
	return cs.getOne(squirrel.Eq{consts.QChanID: channelID})
}

// GetByRemoteID retrieves a single channel by its remote ID.
func (cs *ChannelStore) GetByRemoteID(remoteID string) (*models.Channel, bool, error) {
	return cs.getOne(squirrel.Eq{consts.QChanRemoteID: remoteID})
}

// GetAll retrieves every channel ordered by title.
func (cs *ChannelStore) GetAll() ([]*models.Channel, error) {
	rows, err := channelSelect().
		OrderBy(consts.QChanTitle + " COLLATE NOCASE ASC").
		RunWith(cs.DB).
		Query()
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.E("Failed to close channel rows: %v", err)
		}
	}()

	var channels []*models.Channel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("channel row iteration failed: %w", err)
	}
	return channels, nil
}

// ******************************** Private ********************************

func channelSelect() squirrel.SelectBuilder {
	return squirrel.Select(
		consts.QChanID, consts.QChanRemoteID, consts.QChanTitle,
		consts.QChanDescription, consts.QChanCustomURL, consts.QChanSubscribers,
		consts.QChanVideoCount, consts.QChanViewCount, consts.QChanAvatarURL,
		consts.QChanBannerURL, consts.QChanAPIKey, consts.QChanCreatedAt,
		consts.QChanUpdatedAt,
	).From(consts.DBChannels)
}

func (cs *ChannelStore) getOne(where squirrel.Eq) (*models.Channel, bool, error) {
	row := channelSelect().
		Where(where).
		RunWith(cs.DB).
		QueryRow()

	c, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	var c models.Channel
	if err := row.Scan(
		&c.ID, &c.RemoteID, &c.Title,
		&c.Description, &c.CustomURL, &c.SubscriberCount,
		&c.VideoCount, &c.ViewCount, &c.AvatarURL,
		&c.BannerURL, &c.APIKey, &c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan channel row: %w", err)
	}
	return &c, nil
}
