package repo

import (
	"errors"
	"testing"

	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/models"
)

// TestSingleRunningJob verifies at most one job can hold status=running.
func TestSingleRunningJob(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	job, err := s.jobStore.CreateRunning(string(consts.JobTypeNewOnly), string(consts.TimeFilterWeek), 0)
	if err != nil {
		t.Fatalf("first job creation failed: %v", err)
	}

	if _, err := s.jobStore.CreateRunning(string(consts.JobTypeFull), string(consts.TimeFilterAll), 0); !errors.Is(err, errs.ErrJobConflict) {
		t.Fatalf("second creation returned %v, want ErrJobConflict", err)
	}

	if err := s.jobStore.Finish(job.ID, string(consts.JobStatusCompleted), ""); err != nil {
		t.Fatalf("failed to finish job: %v", err)
	}

	if _, err := s.jobStore.CreateRunning(string(consts.JobTypeFull), string(consts.TimeFilterAll), 0); err != nil {
		t.Errorf("creation after finish failed: %v", err)
	}
}

// TestFinishTerminalImmutable verifies terminal jobs cannot transition again.
func TestFinishTerminalImmutable(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	job, err := s.jobStore.CreateRunning(string(consts.JobTypeNewOnly), string(consts.TimeFilterAll), 0)
	if err != nil {
		t.Fatalf("job creation failed: %v", err)
	}
	if err := s.jobStore.Finish(job.ID, string(consts.JobStatusCancelled), ""); err != nil {
		t.Fatalf("failed to cancel job: %v", err)
	}

	if err := s.jobStore.Finish(job.ID, string(consts.JobStatusCompleted), ""); err == nil {
		t.Error("re-finishing a terminal job succeeded")
	}

	got, found, err := s.jobStore.GetByID(job.ID)
	if err != nil || !found {
		t.Fatalf("failed to reload job: %v (found=%v)", err, found)
	}
	if got.Status != consts.JobStatusCancelled {
		t.Errorf("job status = %q, want cancelled", got.Status)
	}
	if !got.Terminal() {
		t.Error("cancelled job not reported terminal")
	}
}

// TestJobCountsAndHistory verifies counter flushes and history records.
func TestJobCountsAndHistory(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	job, err := s.jobStore.CreateRunning(string(consts.JobTypeFull), string(consts.TimeFilterAll), 0)
	if err != nil {
		t.Fatalf("job creation failed: %v", err)
	}
	if err := s.jobStore.UpdateCounts(job.ID, 10, 7, 2); err != nil {
		t.Fatalf("failed to update counts: %v", err)
	}
	if err := s.jobStore.Finish(job.ID, string(consts.JobStatusCompleted), ""); err != nil {
		t.Fatalf("failed to finish job: %v", err)
	}
	if err := s.jobStore.AddHistory(&models.SyncHistory{JobID: job.ID, VideosSynced: 7, Duration: 42}); err != nil {
		t.Fatalf("failed to add history: %v", err)
	}

	got, _, err := s.jobStore.GetByID(job.ID)
	if err != nil {
		t.Fatalf("failed to reload job: %v", err)
	}
	if got.TotalItems != 10 || got.ProcessedItems != 7 || got.FailedItems != 2 {
		t.Errorf("counts = %d/%d/%d, want 10/7/2", got.TotalItems, got.ProcessedItems, got.FailedItems)
	}
	if got.CompletedAt == nil {
		t.Error("completed job has nil completed_at")
	}

	history, err := s.jobStore.ListHistory(0)
	if err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(history) != 1 || history[0].VideosSynced != 7 || history[0].JobID != job.ID {
		t.Fatalf("history state wrong: %+v", history)
	}
}
