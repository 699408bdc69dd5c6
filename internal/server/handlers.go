package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/models"
)

// handleSyncStart launches a sync job.
func handleSyncStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobType    string `json:"job_type"`
		ChannelID  int64  `json:"channel_id"`
		TimeFilter string `json:"time_filter"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channel_id is required")
		return
	}
	if req.JobType == "" {
		req.JobType = string(consts.JobTypeNewOnly)
	}

	job, err := manager.Start(consts.JobType(req.JobType), req.ChannelID, consts.TimeFilter(req.TimeFilter))
	switch {
	case errors.Is(err, errs.ErrJobConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusAccepted, job)
	}
}

// handleSyncStop requests cooperative cancellation.
func handleSyncStop(w http.ResponseWriter, _ *http.Request) {
	stopped := manager.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"stopping": stopped})
}

// handleSyncStatus returns the live snapshot plus storage stats and
// the auto-sync schedule.
func handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	stats, err := store.VideoStore().StorageStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	resp := map[string]any{
		"snapshot": manager.Status(),
		"running":  manager.Running(),
		"storage":  stats,
	}
	if last := sched.LastRun(); !last.IsZero() {
		resp["last_auto_sync"] = last
	}
	if next := sched.NextRunTime(now); !next.IsZero() {
		resp["next_auto_sync"] = next
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGetSyncConfig returns the singleton sync configuration.
func handleGetSyncConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := store.ConfigStore().Get()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleUpdateSyncConfig overwrites the sync configuration.
func handleUpdateSyncConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.SyncConfig
	if err := decodeBody(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if cfg.AutoSyncTime != "" {
		if _, err := time.Parse("15:04", cfg.AutoSyncTime); err != nil {
			writeError(w, http.StatusBadRequest, "auto_sync_time must be HH:MM")
			return
		}
	}
	if cfg.AutoSyncType != "" && !consts.ValidJobTypes[cfg.AutoSyncType] {
		writeError(w, http.StatusBadRequest, "unknown auto_sync_type")
		return
	}
	if cfg.AutoSyncType == "" {
		cfg.AutoSyncType = consts.JobTypeNewOnly
	}
	if cfg.MaxVideoQuality == "" {
		cfg.MaxVideoQuality = models.DefaultSyncConfig.MaxVideoQuality
	}

	if err := store.ConfigStore().Update(&cfg); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSyncHistory lists recent jobs and completed-run records.
func handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := store.JobStore().ListRecent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	history, err := store.JobStore().ListHistory(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":    jobs,
		"history": history,
	})
}

// handleListQueue lists queue items, optionally filtered by status.
func handleListQueue(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	if s := r.URL.Query().Get("status"); s != "" {
		statuses = append(statuses, s)
	}
	items, err := store.QueueStore().List(statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleDeleteQueueItem removes one queue item.
func handleDeleteQueueItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid queue item ID")
		return
	}
	if err := store.QueueStore().Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleListErrors lists recorded failures, newest first.
func handleListErrors(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := store.ErrorLogStore().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleClearErrors empties the error log.
func handleClearErrors(w http.ResponseWriter, _ *http.Request) {
	if err := store.ErrorLogStore().Clear(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// handleListChannels lists all archived channels.
func handleListChannels(w http.ResponseWriter, _ *http.Request) {
	channels, err := store.ChannelStore().GetAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

// handleCreateChannel registers a channel to archive. Metadata fills
// in on its first sync.
func handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RemoteChannelID string `json:"remote_channel_id"`
		Title           string `json:"title"`
		APIKey          string `json:"api_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RemoteChannelID == "" {
		writeError(w, http.StatusBadRequest, "remote_channel_id is required")
		return
	}

	c := &models.Channel{
		RemoteID: req.RemoteChannelID,
		Title:    req.Title,
		APIKey:   req.APIKey,
	}
	if _, err := store.ChannelStore().Upsert(c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleGetChannel returns one channel.
func handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}
	c, found, err := store.ChannelStore().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "channel not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleListChannelVideos lists a channel's archived videos.
func handleListChannelVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}
	videos, err := store.VideoStore().ListByChannel(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

// handleUpdateChannel updates a channel's API key override.
func handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := store.ChannelStore().UpdateAPIKey(id, req.APIKey); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": id})
}

// handleDeleteChannel removes a channel and its archived rows.
func handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid channel ID")
		return
	}
	if err := store.ChannelStore().Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
