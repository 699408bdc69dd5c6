// Package broadcast fans live sync and download progress out to
// stream subscribers.
package broadcast

import (
	"context"
	"sync"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/logging"
	"archivarr/internal/models"

	"github.com/google/uuid"
)

// subscriberBuffer bounds the per-subscriber event backlog. A
// subscriber that falls this far behind is dropped.
const subscriberBuffer = 64

type subscriber struct {
	ch       chan models.Event
	lastSeen time.Time
}

// Hub retains the last-broadcast snapshot and pushes every transition
// to all subscribers. New subscribers get the snapshot immediately so
// late joiners render current state without waiting for a transition.
type Hub struct {
	mu        sync.Mutex
	sync      models.SyncProgress
	downloads map[int64]models.DownloadProgress
	subs      map[string]*subscriber
}

// NewHub returns an idle hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		sync:      models.IdleSyncProgress,
		downloads: make(map[int64]models.DownloadProgress),
		subs:      make(map[string]*subscriber),
	}
}

// Run reaps subscribers that stopped pinging. Blocks until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(consts.SubscriberTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.reap(now)
		}
	}
}

// Subscribe registers a new stream subscriber. The returned channel
// already holds the connected event carrying the current snapshot, and
// is closed when the subscriber is dropped or unsubscribed.
func (h *Hub) Subscribe() (string, <-chan models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	sub := &subscriber{
		ch:       make(chan models.Event, subscriberBuffer),
		lastSeen: time.Now(),
	}
	sub.ch <- models.Event{Type: consts.EventConnected, Data: h.snapshotLocked()}
	h.subs[id] = sub

	logging.D(1, "Stream subscriber %s connected (%d total)", id, len(h.subs))
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id)
}

// Ping marks the subscriber live and answers with a pong event.
// Returns false for unknown subscriber IDs, and for subscribers too
// backed up to take the pong, which are dropped.
func (h *Hub) Ping(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[id]
	if !ok {
		return false
	}
	sub.lastSeen = time.Now()

	select {
	case sub.ch <- models.Event{Type: consts.EventPong}:
	default:
		h.dropLocked(id)
		return false
	}
	return true
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Snapshot returns a copy of the retained state.
func (h *Hub) Snapshot() models.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

// PushSync updates the retained job view and broadcasts it.
func (h *Hub) PushSync(p models.SyncProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sync = p
	h.broadcastLocked(models.Event{Type: consts.EventSyncProgress, Data: p})
}

// PushDownload updates one item's retained download view and
// broadcasts it.
func (h *Hub) PushDownload(d models.DownloadProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.downloads[d.VideoID] = d
	h.broadcastLocked(models.Event{Type: consts.EventDownloadProgress, Data: d})
}

// FinishDownload drops one item from the retained per-item map after
// broadcasting its final state, so the snapshot only carries in-flight
// downloads.
func (h *Hub) FinishDownload(d models.DownloadProgress) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastLocked(models.Event{Type: consts.EventDownloadProgress, Data: d})
	delete(h.downloads, d.VideoID)
}

// Terminal broadcasts a job-ending event and resets the snapshot to
// idle, clearing the per-item download map.
func (h *Hub) Terminal(eventType string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.broadcastLocked(models.Event{Type: eventType, Data: data})
	h.sync = models.IdleSyncProgress
	h.downloads = make(map[int64]models.DownloadProgress)
}

// ******************************** Private ********************************

func (h *Hub) snapshotLocked() models.Snapshot {
	snap := models.Snapshot{
		Sync:      h.sync,
		Downloads: make([]models.DownloadProgress, 0, len(h.downloads)),
	}
	for _, d := range h.downloads {
		snap.Downloads = append(snap.Downloads, d)
	}
	return snap
}

// broadcastLocked delivers to every subscriber without blocking; a
// subscriber with a full buffer is dropped rather than stalling the
// send path.
func (h *Hub) broadcastLocked(ev models.Event) {
	for id, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			logging.W("Dropping slow stream subscriber %s", id)
			h.dropLocked(id)
		}
	}
}

func (h *Hub) dropLocked(id string) {
	if sub, ok := h.subs[id]; ok {
		close(sub.ch)
		delete(h.subs, id)
	}
}

func (h *Hub) reap(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		if now.Sub(sub.lastSeen) > consts.SubscriberTimeout {
			logging.D(1, "Stream subscriber %s timed out", id)
			h.dropLocked(id)
		}
	}
}
