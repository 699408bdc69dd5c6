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

// ConfigStore holds a pointer to the sql.DB.
type ConfigStore struct {
	DB *sql.DB
}

// GetConfigStore returns a config store instance with injected database.
func GetConfigStore(db *sql.DB) *ConfigStore {
	return &ConfigStore{
		DB: db,
	}
}

// GetDB returns the database.
func (cs *ConfigStore) GetDB() *sql.DB {
	return cs.DB
}

// Get returns the singleton sync configuration, creating the default
// row on first access.
func (cs *ConfigStore) Get() (cfg *models.SyncConfig, err error) {
	cfg, err = cs.fetch()
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	tx, err := cs.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Panic rollback failed seeding sync config: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.E("Failed to rollback sync config seed (original error: %v): %v", err, rbErr)
			}
		}
	}()

	def := models.DefaultSyncConfig
	insert := squirrel.
		Insert(consts.DBSyncCfg).
		Columns(
			consts.QCfgAutoEnabled, consts.QCfgAutoTime, consts.QCfgAutoType,
			consts.QCfgMaxQuality, consts.QCfgSyncComments,
		).
		Values(
			def.AutoSyncEnabled, def.AutoSyncTime, def.AutoSyncType,
			def.MaxVideoQuality, def.SyncComments,
		).
		RunWith(tx)

	res, err := insert.Exec()
	if err != nil {
		return nil, fmt.Errorf("failed to seed sync config: %w", err)
	}
	if def.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to get seeded config ID: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sync config seed: %w", err)
	}

	def.UpdatedAt = time.Now()
	return &def, nil
}

// Update overwrites the singleton configuration row.
func (cs *ConfigStore) Update(c *models.SyncConfig) error {
	current, err := cs.Get()
	if err != nil {
		return err
	}

	query := squirrel.
		Update(consts.DBSyncCfg).
		Set(consts.QCfgAutoEnabled, c.AutoSyncEnabled).
		Set(consts.QCfgAutoTime, c.AutoSyncTime).
		Set(consts.QCfgAutoType, c.AutoSyncType).
		Set(consts.QCfgMaxQuality, c.MaxVideoQuality).
		Set(consts.QCfgSyncComments, c.SyncComments).
		Set(consts.QCfgUpdatedAt, time.Now()).
		Where(squirrel.Eq{consts.QCfgID: current.ID}).
		RunWith(cs.DB)

	if _, err := query.Exec(); err != nil {
		return fmt.Errorf("failed to update sync config: %w", err)
	}
	c.ID = current.ID
	return nil
}

// ******************************** Private ********************************

func (cs *ConfigStore) fetch() (*models.SyncConfig, error) {
	row := squirrel.
		Select(
			consts.QCfgID, consts.QCfgAutoEnabled, consts.QCfgAutoTime,
			consts.QCfgAutoType, consts.QCfgMaxQuality, consts.QCfgSyncComments,
			consts.QCfgUpdatedAt,
		).
		From(consts.DBSyncCfg).
		OrderBy(consts.QCfgID + " ASC").
		Limit(1).
		RunWith(cs.DB).
		QueryRow()

	var cfg models.SyncConfig
	if err := row.Scan(
		&cfg.ID, &cfg.AutoSyncEnabled, &cfg.AutoSyncTime,
		&cfg.AutoSyncType, &cfg.MaxVideoQuality, &cfg.SyncComments,
		&cfg.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync config row: %w", err)
	}
	return &cfg, nil
}
