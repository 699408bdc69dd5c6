// Package repo is used for performing database repository operations.
package repo

import (
	"database/sql"

	"archivarr/internal/contracts"
)

// Store holds the database handle and the per-table sub-stores.
type Store struct {
	db            *sql.DB
	channelStore  *ChannelStore
	videoStore    *VideoStore
	commentStore  *CommentStore
	queueStore    *QueueStore
	jobStore      *JobStore
	errorLogStore *ErrorLogStore
	configStore   *ConfigStore
}

// InitStores injects the database into the store methods.
func InitStores(db *sql.DB) *Store {
	return &Store{
		db:            db,
		channelStore:  GetChannelStore(db),
		videoStore:    GetVideoStore(db),
		commentStore:  GetCommentStore(db),
		queueStore:    GetQueueStore(db),
		jobStore:      GetJobStore(db),
		errorLogStore: GetErrorLogStore(db),
		configStore:   GetConfigStore(db),
	}
}

// ChannelStore with pointer receiver.
func (s *Store) ChannelStore() contracts.ChannelStore {
	return s.channelStore
}

// VideoStore with pointer receiver.
func (s *Store) VideoStore() contracts.VideoStore {
	return s.videoStore
}

// CommentStore with pointer receiver.
func (s *Store) CommentStore() contracts.CommentStore {
	return s.commentStore
}

// QueueStore with pointer receiver.
func (s *Store) QueueStore() contracts.QueueStore {
	return s.queueStore
}

// JobStore with pointer receiver.
func (s *Store) JobStore() contracts.JobStore {
	return s.jobStore
}

// ErrorLogStore with pointer receiver.
func (s *Store) ErrorLogStore() contracts.ErrorLogStore {
	return s.errorLogStore
}

// ConfigStore with pointer receiver.
func (s *Store) ConfigStore() contracts.ConfigStore {
	return s.configStore
}
