package repo

import (
	"errors"
	"testing"
	"time"

	"archivarr/internal/database"
	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/models"
)

// newTestStore returns stores over a fresh in-memory database.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return InitStores(db)
}

// seedVideo inserts a channel (once) and a video, returning the video ID.
func seedVideo(t *testing.T, s *Store, remoteID string) int64 {
	t.Helper()

	chanID, err := s.channelStore.Upsert(&models.Channel{
		RemoteID: "chan-under-test",
		Title:    "Test Channel",
	})
	if err != nil {
		t.Fatalf("failed to seed channel: %v", err)
	}

	vidID, err := s.videoStore.Upsert(&models.Video{
		RemoteID:   remoteID,
		ChannelID:  chanID,
		Title:      "Video " + remoteID,
		UploadDate: time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("failed to seed video %q: %v", remoteID, err)
	}
	return vidID
}

// TestEnqueueIdempotent verifies a live entry suppresses duplicates.
func TestEnqueueIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	vidID := seedVideo(t, s, "vid-a")

	firstID, enqueued, err := s.queueStore.Enqueue(vidID, 0, 0, 3)
	if err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}
	if !enqueued {
		t.Fatal("first enqueue reported not enqueued")
	}

	secondID, enqueued, err := s.queueStore.Enqueue(vidID, 0, 0, 3)
	if err != nil {
		t.Fatalf("second enqueue failed: %v", err)
	}
	if enqueued {
		t.Error("second enqueue created a duplicate live entry")
	}
	if secondID != firstID {
		t.Errorf("second enqueue returned ID %d, want existing %d", secondID, firstID)
	}

	items, err := s.queueStore.List()
	if err != nil {
		t.Fatalf("failed to list queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d queue items, want 1", len(items))
	}

	// A completed entry no longer blocks re-enqueueing.
	if err := s.queueStore.MarkCompleted(firstID); err != nil {
		t.Fatalf("failed to mark completed: %v", err)
	}
	if _, enqueued, err = s.queueStore.Enqueue(vidID, 0, 0, 3); err != nil {
		t.Fatalf("re-enqueue after completion failed: %v", err)
	}
	if !enqueued {
		t.Error("re-enqueue after completion was suppressed")
	}
}

// TestDequeueOrdering verifies priority-then-insertion claim order.
func TestDequeueOrdering(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	low := seedVideo(t, s, "vid-low")
	high := seedVideo(t, s, "vid-high")
	tie := seedVideo(t, s, "vid-tie")

	for _, v := range []struct {
		vidID    int64
		priority int
	}{
		{low, 0},
		{high, 5},
		{tie, 5},
	} {
		if _, _, err := s.queueStore.Enqueue(v.vidID, 0, v.priority, 3); err != nil {
			t.Fatalf("failed to enqueue video %d: %v", v.vidID, err)
		}
	}

	wantOrder := []int64{high, tie, low}
	for i, want := range wantOrder {
		item, err := s.queueStore.DequeueNext()
		if err != nil {
			t.Fatalf("dequeue %d failed: %v", i, err)
		}
		if item.VideoID != want {
			t.Errorf("dequeue %d claimed video %d, want %d", i, item.VideoID, want)
		}
		if item.Status != consts.QueueStatusDownloading {
			t.Errorf("claimed item status = %q, want downloading", item.Status)
		}
	}

	if _, err := s.queueStore.DequeueNext(); !errors.Is(err, errs.ErrQueueEmpty) {
		t.Errorf("empty dequeue returned %v, want ErrQueueEmpty", err)
	}
}

// TestRequeueBackoff verifies a requeued item is not claimable until
// its backoff elapses.
func TestRequeueBackoff(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	vidID := seedVideo(t, s, "vid-backoff")

	if _, _, err := s.queueStore.Enqueue(vidID, 0, 0, 3); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	item, err := s.queueStore.DequeueNext()
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if err := s.queueStore.Requeue(item.ID, 1, "network blip"); err != nil {
		t.Fatalf("requeue failed: %v", err)
	}

	if _, err := s.queueStore.DequeueNext(); !errors.Is(err, errs.ErrQueueEmpty) {
		t.Errorf("item was claimable before its backoff elapsed: %v", err)
	}

	pending, err := s.queueStore.PendingCount()
	if err != nil {
		t.Fatalf("pending count failed: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending count = %d, want 1", pending)
	}

	items, err := s.queueStore.List(string(consts.QueueStatusQueued))
	if err != nil {
		t.Fatalf("failed to list queued items: %v", err)
	}
	if len(items) != 1 || items[0].RetryCount != 1 {
		t.Fatalf("requeued item state wrong: %+v", items)
	}
	if !items[0].NextAttemptAt.After(time.Now()) {
		t.Error("next_attempt_at was not pushed into the future")
	}
}

// TestResetInterrupted verifies stranded downloading rows return to queued.
func TestResetInterrupted(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	vidID := seedVideo(t, s, "vid-stranded")

	if _, _, err := s.queueStore.Enqueue(vidID, 0, 0, 3); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := s.queueStore.DequeueNext(); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	n, err := s.queueStore.ResetInterrupted()
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset %d rows, want 1", n)
	}

	item, err := s.queueStore.DequeueNext()
	if err != nil {
		t.Fatalf("dequeue after reset failed: %v", err)
	}
	if item.VideoID != vidID {
		t.Errorf("claimed video %d after reset, want %d", item.VideoID, vidID)
	}
}

// TestMarkFailedTerminal verifies failed items stay out of the live set.
func TestMarkFailedTerminal(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	vidID := seedVideo(t, s, "vid-fail")

	id, _, err := s.queueStore.Enqueue(vidID, 0, 0, 3)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := s.queueStore.DequeueNext(); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if err := s.queueStore.MarkFailed(id, "source gone"); err != nil {
		t.Fatalf("mark failed errored: %v", err)
	}

	pending, err := s.queueStore.PendingCount()
	if err != nil {
		t.Fatalf("pending count failed: %v", err)
	}
	if pending != 0 {
		t.Errorf("pending count = %d after failure, want 0", pending)
	}

	items, err := s.queueStore.List(string(consts.QueueStatusFailed))
	if err != nil {
		t.Fatalf("failed to list failed items: %v", err)
	}
	if len(items) != 1 || items[0].ErrorMessage != "source gone" {
		t.Fatalf("failed item state wrong: %+v", items)
	}
}
