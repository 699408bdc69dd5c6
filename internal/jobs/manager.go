// Package jobs orchestrates sync runs: catalog enumeration, queue
// population and the download drain, under a single-running-job
// guarantee.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"archivarr/internal/broadcast"
	"archivarr/internal/catalog"
	"archivarr/internal/contracts"
	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/downloads"
	"archivarr/internal/logging"
	"archivarr/internal/models"
)

// ClientFactory builds a catalog client for an API key, so each run
// can honor per-channel key overrides.
type ClientFactory func(apiKey string) catalog.Client

// Manager owns the single-running-job state machine.
type Manager struct {
	store      contracts.Store
	hub        *broadcast.Hub
	worker     *downloads.Worker
	newClient  ClientFactory
	storageDir string
	apiKey     string // global key; per-channel keys override

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	current *models.SyncJob
}

// NewManager wires a job manager.
func NewManager(store contracts.Store, hub *broadcast.Hub, worker *downloads.Worker, newClient ClientFactory, storageDir, apiKey string) *Manager {
	return &Manager{
		store:      store,
		hub:        hub,
		worker:     worker,
		newClient:  newClient,
		storageDir: storageDir,
		apiKey:     apiKey,
	}
}

// Start creates a running job and launches its run goroutine,
// returning the created job immediately. errs.ErrJobConflict when a
// job is already running, errs.ErrInvalidConfig when no API key is
// usable for the channel.
func (m *Manager) Start(jobType consts.JobType, channelID int64, timeFilter consts.TimeFilter) (*models.SyncJob, error) {
	if !consts.ValidJobTypes[jobType] {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
	if timeFilter == "" {
		timeFilter = consts.TimeFilterAll
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && !m.current.Terminal() {
		return nil, errs.ErrJobConflict
	}

	channel, found, err := m.store.ChannelStore().GetByID(channelID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("channel %d does not exist", channelID)
	}
	apiKey := channel.APIKey
	if apiKey == "" {
		apiKey = m.apiKey
	}
	if apiKey == "" {
		return nil, errs.ErrInvalidConfig
	}

	job, err := m.store.JobStore().CreateRunning(string(jobType), string(timeFilter), channelID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.current = job

	go func() {
		defer close(done)
		defer cancel()
		m.run(ctx, job, channel, apiKey)
	}()

	logging.I("Started sync job %d (%s, channel %d, filter %s)", job.ID, jobType, channelID, timeFilter)
	return job, nil
}

// Stop requests cooperative cancellation of the active job and returns
// immediately. Returns false when nothing is running.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || m.current.Terminal() || m.cancel == nil {
		return false
	}
	logging.I("Stop requested for sync job %d", m.current.ID)
	m.cancel()
	return true
}

// Running reports whether a job is currently active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil && !m.current.Terminal()
}

// Status returns the broadcaster's live snapshot.
func (m *Manager) Status() models.Snapshot {
	return m.hub.Snapshot()
}

// Wait blocks until the active run goroutine exits. Used on shutdown.
func (m *Manager) Wait() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		<-done
	}
}

// ResumeInterrupted restarts work left behind by an unclean shutdown:
// queue items stuck in downloading return to queued, and a job stuck
// in running is closed out and re-run with the same type and filter.
func (m *Manager) ResumeInterrupted() error {
	reset, err := m.store.QueueStore().ResetInterrupted()
	if err != nil {
		return err
	}
	if reset > 0 {
		logging.W("Reset %d interrupted downloads to queued", reset)
	}

	job, found, err := m.store.JobStore().GetRunning()
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	logging.W("Sync job %d was interrupted by shutdown; restarting as a fresh run", job.ID)
	if err := m.store.JobStore().Finish(job.ID, string(consts.JobStatusFailed), "interrupted by shutdown"); err != nil {
		return err
	}
	if _, err := m.Start(job.JobType, job.ChannelID, job.TimeFilter); err != nil {
		return fmt.Errorf("failed to restart interrupted job: %w", err)
	}
	return nil
}

// ******************************** Private ********************************

// runState tracks live counters for one run.
type runState struct {
	job       *models.SyncJob
	total     int
	processed int
	failed    int
}

func (m *Manager) run(ctx context.Context, job *models.SyncJob, channel *models.Channel, apiKey string) {
	started := time.Now()
	st := &runState{job: job}

	m.pushSync(st, consts.TaskStateSyncing, "")

	enumErr := m.enumerate(ctx, st, channel, apiKey)

	// Enqueued downloads keep draining even when enumeration aborted
	// on quota, per the preserved-work rule. Cancellation stops both.
	var drainErr error
	if ctx.Err() == nil && st.job.JobType != consts.JobTypeMetadataOnly && st.job.JobType != consts.JobTypeCommentsOnly {
		drainErr = m.drain(ctx, st)
	}

	m.finalize(st, started, enumErr, drainErr)
}

// enumerate walks the catalog, upserting metadata and populating the
// queue according to the job type.
func (m *Manager) enumerate(ctx context.Context, st *runState, channel *models.Channel, apiKey string) error {
	client := m.newClient(apiKey)
	fetcher := catalog.NewFetcher(client)

	fresh, uploadsID, err := client.ChannelInfo(ctx, channel.RemoteID)
	if err != nil {
		return err
	}
	fresh.APIKey = channel.APIKey
	if _, err := m.store.ChannelStore().Upsert(fresh); err != nil {
		return err
	}

	cfg, err := m.store.ConfigStore().Get()
	if err != nil {
		return err
	}

	cutoff := catalog.CutoffFor(st.job.TimeFilter, time.Now())
	newOnly := st.job.JobType == consts.JobTypeNewOnly

	// Only new_only stops paging at the cutoff; other bounded job types
	// walk every page and filter item by item.
	return fetcher.Videos(ctx, uploadsID, cutoff, newOnly && !cutoff.IsZero(), func(v *models.Video) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		existing, known, err := m.store.VideoStore().GetByRemoteID(v.RemoteID)
		if err != nil {
			return false, err
		}

		// new_only stops at the first already-archived-and-downloaded
		// video: everything older is covered by a previous run.
		if newOnly && known && existing.Downloaded {
			logging.D(1, "Reached already-downloaded video %q; stopping enumeration", v.RemoteID)
			return false, nil
		}

		v.ChannelID = channel.ID
		videoID, err := m.store.VideoStore().Upsert(v)
		if err != nil {
			return false, err
		}

		if st.job.JobType != consts.JobTypeCommentsOnly {
			wantDownload := !known || !existing.Downloaded
			if wantDownload && st.job.JobType != consts.JobTypeMetadataOnly {
				if _, enq, err := m.store.QueueStore().Enqueue(videoID, st.job.ID, 0, consts.DefaultMaxRetries); err != nil {
					return false, err
				} else if enq {
					logging.D(1, "Enqueued video %q for download", v.RemoteID)
				}
			}
		}

		if cfg.SyncComments && st.job.JobType != consts.JobTypeMetadataOnly {
			if err := m.syncComments(ctx, fetcher, videoID, v.RemoteID); err != nil {
				return false, err
			}
		}

		st.total++
		st.processed++
		m.flushCounts(st)
		m.pushSync(st, consts.TaskStateSyncing, v.Title)
		return true, nil
	})
}

func (m *Manager) syncComments(ctx context.Context, fetcher *catalog.Fetcher, videoID int64, remoteID string) error {
	comments, err := fetcher.Comments(ctx, remoteID)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		return nil
	}
	if err := m.store.CommentStore().UpsertBatch(videoID, comments); err != nil {
		return err
	}
	logging.D(1, "Stored %d comments for video %q", len(comments), remoteID)
	return nil
}

func (m *Manager) drain(ctx context.Context, st *runState) error {
	cfg, err := m.store.ConfigStore().Get()
	if err != nil {
		return err
	}

	m.pushSync(st, consts.TaskStateDownloading, "")

	completed, failed, err := m.worker.Drain(ctx, st.job.ID, downloads.Options{
		StorageDir: m.storageDir,
		MaxQuality: cfg.MaxVideoQuality,
	})
	st.failed += failed
	m.flushCounts(st)
	logging.I("Queue drain for job %d: %d completed, %d failed", st.job.ID, completed, failed)
	return err
}

func (m *Manager) finalize(st *runState, started time.Time, enumErr, drainErr error) {
	status := consts.JobStatusCompleted
	errMsg := ""
	event := consts.EventSyncCompleted

	firstErr := enumErr
	if firstErr == nil {
		firstErr = drainErr
	}

	switch {
	case errors.Is(firstErr, context.Canceled):
		status = consts.JobStatusCancelled
		event = consts.EventSyncCancelled
	case firstErr != nil:
		status = consts.JobStatusFailed
		errMsg = firstErr.Error()
		event = consts.EventSyncError
		if entryErr := m.store.ErrorLogStore().Add(&models.ErrorLog{
			JobID:        st.job.ID,
			ErrorType:    consts.ErrTypeSync,
			ErrorMessage: errMsg,
		}); entryErr != nil {
			logging.E("Failed to record job error log: %v", entryErr)
		}
	}

	if err := m.store.JobStore().Finish(st.job.ID, string(status), errMsg); err != nil {
		logging.E("Failed to finish job %d: %v", st.job.ID, err)
	}

	if status == consts.JobStatusCompleted {
		if err := m.store.JobStore().AddHistory(&models.SyncHistory{
			JobID:        st.job.ID,
			VideosSynced: st.processed,
			Duration:     int64(time.Since(started).Seconds()),
		}); err != nil {
			logging.E("Failed to record sync history for job %d: %v", st.job.ID, err)
		}
	}

	m.mu.Lock()
	st.job.Status = status
	m.mu.Unlock()

	m.hub.Terminal(event, map[string]any{
		"job_id":          st.job.ID,
		"status":          status,
		"processed_items": st.processed,
		"failed_items":    st.failed,
		"error":           errMsg,
	})
	logging.I("Sync job %d finished: %s (%d processed, %d failed)", st.job.ID, status, st.processed, st.failed)
}

func (m *Manager) flushCounts(st *runState) {
	if err := m.store.JobStore().UpdateCounts(st.job.ID, st.total, st.processed, st.failed); err != nil {
		logging.E("Failed to flush counts for job %d: %v", st.job.ID, err)
	}
}

func (m *Manager) pushSync(st *runState, state, currentItem string) {
	var pct float64
	if st.total > 0 {
		pct = float64(st.processed) / float64(st.total) * 100
	}
	m.hub.PushSync(models.SyncProgress{
		JobID:           st.job.ID,
		Status:          state,
		JobType:         st.job.JobType,
		ChannelID:       st.job.ChannelID,
		TotalItems:      st.total,
		ProcessedItems:  st.processed,
		CurrentItem:     currentItem,
		PercentComplete: pct,
	})
}
