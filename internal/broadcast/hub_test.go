package broadcast

import (
	"testing"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/models"
)

func recvEvent(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev, open := <-ch:
		if !open {
			t.Fatal("event channel closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

// TestSubscribeReplaysSnapshot verifies late joiners get current state
// immediately.
func TestSubscribeReplaysSnapshot(t *testing.T) {
	t.Parallel()

	hub := NewHub()

	// Idle hub: connected event with idle snapshot.
	id, ch := hub.Subscribe()
	ev := recvEvent(t, ch)
	if ev.Type != consts.EventConnected {
		t.Fatalf("first event = %q, want connected", ev.Type)
	}
	snap, ok := ev.Data.(models.Snapshot)
	if !ok {
		t.Fatalf("connected payload is %T, want Snapshot", ev.Data)
	}
	if snap.Sync.JobID != 0 || snap.Sync.Status != consts.TaskStateIdle {
		t.Errorf("idle snapshot wrong: %+v", snap.Sync)
	}
	hub.Unsubscribe(id)

	// Mid-job hub: connected event carries the last broadcast state.
	hub.PushSync(models.SyncProgress{JobID: 7, Status: consts.TaskStateSyncing, TotalItems: 3})
	hub.PushDownload(models.DownloadProgress{VideoID: 42, Progress: 50})

	id2, ch2 := hub.Subscribe()
	defer hub.Unsubscribe(id2)
	ev = recvEvent(t, ch2)
	snap = ev.Data.(models.Snapshot)
	if snap.Sync.JobID != 7 || len(snap.Downloads) != 1 || snap.Downloads[0].VideoID != 42 {
		t.Errorf("mid-job snapshot wrong: %+v", snap)
	}
}

// TestTerminalClearsSnapshot verifies job-ending events reset retained
// state.
func TestTerminalClearsSnapshot(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.PushSync(models.SyncProgress{JobID: 9, Status: consts.TaskStateDownloading})
	hub.PushDownload(models.DownloadProgress{VideoID: 1, Progress: 10})

	id, ch := hub.Subscribe()
	defer hub.Unsubscribe(id)
	recvEvent(t, ch) // connected

	hub.Terminal(consts.EventSyncCompleted, map[string]any{"job_id": int64(9)})

	ev := recvEvent(t, ch)
	if ev.Type != consts.EventSyncCompleted {
		t.Fatalf("terminal event = %q, want sync_completed", ev.Type)
	}

	snap := hub.Snapshot()
	if snap.Sync.JobID != 0 || len(snap.Downloads) != 0 {
		t.Errorf("snapshot not cleared after terminal event: %+v", snap)
	}
}

// TestPing verifies liveness pings answer pong and unknown IDs fail.
func TestPing(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	id, ch := hub.Subscribe()
	defer hub.Unsubscribe(id)
	recvEvent(t, ch) // connected

	if !hub.Ping(id) {
		t.Fatal("ping for live subscriber failed")
	}
	if ev := recvEvent(t, ch); ev.Type != consts.EventPong {
		t.Errorf("ping answered %q, want pong", ev.Type)
	}

	if hub.Ping("not-a-subscriber") {
		t.Error("ping for unknown subscriber succeeded")
	}
}

// TestPingDropsBackedUpSubscriber verifies a ping that cannot deliver
// its pong reports the disconnect.
func TestPingDropsBackedUpSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	id, _ := hub.Subscribe()

	// Never read; connected already occupies one slot.
	for i := 0; i < subscriberBuffer-1; i++ {
		hub.PushSync(models.SyncProgress{JobID: 1, ProcessedItems: i})
	}

	if hub.Ping(id) {
		t.Fatal("ping reported a healthy subscription after dropping it")
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("backed-up subscriber still registered (%d subs)", hub.SubscriberCount())
	}
}

// TestSlowSubscriberDropped verifies a full buffer drops the subscriber
// instead of blocking the send path.
func TestSlowSubscriberDropped(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	_, ch := hub.Subscribe()

	// Never read; connected already occupies one slot.
	for i := 0; i < subscriberBuffer+1; i++ {
		hub.PushSync(models.SyncProgress{JobID: 1, ProcessedItems: i})
	}

	if hub.SubscriberCount() != 0 {
		t.Fatalf("slow subscriber still registered (%d subs)", hub.SubscriberCount())
	}

	// Channel must be closed so a blocked reader unwinds.
	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("dropped subscriber's channel never closed")
		}
	}
}

// TestReapTimesOutSilentSubscribers verifies the liveness reaper.
func TestReapTimesOutSilentSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	id, _ := hub.Subscribe()

	hub.reap(time.Now().Add(consts.SubscriberTimeout + time.Second))
	if hub.SubscriberCount() != 0 {
		t.Error("silent subscriber survived the reap")
	}
	if hub.Ping(id) {
		t.Error("reaped subscriber still pingable")
	}
}
