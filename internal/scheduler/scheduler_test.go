package scheduler

import (
	"testing"
	"time"

	"archivarr/internal/broadcast"
	"archivarr/internal/database"
	"archivarr/internal/jobs"
	"archivarr/internal/repo"
)

func newTestScheduler(t *testing.T) (*Scheduler, *repo.Store) {
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

	store := repo.InitStores(db)
	manager := jobs.NewManager(store, broadcast.NewHub(), nil, nil, t.TempDir(), "")
	return New(store, manager), store
}

func enableAutoSync(t *testing.T, store *repo.Store, at string) {
	t.Helper()
	cfg, err := store.ConfigStore().Get()
	if err != nil {
		t.Fatalf("failed to load sync config: %v", err)
	}
	cfg.AutoSyncEnabled = true
	cfg.AutoSyncTime = at
	if err := store.ConfigStore().Update(cfg); err != nil {
		t.Fatalf("failed to update sync config: %v", err)
	}
}

// TestTickFiresOncePerDate verifies repeated ticks inside the matching
// minute fire a single run, and the next day fires again.
func TestTickFiresOncePerDate(t *testing.T) {
	t.Parallel()

	sched, store := newTestScheduler(t)
	now := time.Date(2026, 3, 14, 4, 30, 0, 0, time.Local)
	enableAutoSync(t, store, "04:30")

	sched.tick(now)
	first := sched.LastRun()
	if first.IsZero() {
		t.Fatal("scheduler did not fire on a matching tick")
	}

	sched.tick(now.Add(30 * time.Second))
	if got := sched.LastRun(); !got.Equal(first) {
		t.Errorf("second tick in the same minute re-fired at %v", got)
	}

	tomorrow := now.AddDate(0, 0, 1)
	sched.tick(tomorrow)
	if got := sched.LastRun(); !got.Equal(tomorrow) {
		t.Errorf("next-day tick did not fire: last run %v", got)
	}
}

// TestTickRespectsConfig verifies disabled or mismatched configuration
// never fires.
func TestTickRespectsConfig(t *testing.T) {
	t.Parallel()

	sched, store := newTestScheduler(t)
	now := time.Date(2026, 3, 14, 4, 30, 0, 0, time.Local)

	// Disabled by default.
	sched.tick(now)
	if !sched.LastRun().IsZero() {
		t.Fatal("scheduler fired while auto-sync is disabled")
	}

	// Enabled but a different minute.
	enableAutoSync(t, store, "04:31")
	sched.tick(now)
	if !sched.LastRun().IsZero() {
		t.Fatal("scheduler fired outside the configured minute")
	}
}

func TestNextRunTime(t *testing.T) {
	t.Parallel()

	sched, store := newTestScheduler(t)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

	if got := sched.NextRunTime(now); !got.IsZero() {
		t.Fatalf("NextRunTime = %v while disabled, want zero", got)
	}

	enableAutoSync(t, store, "14:00")
	want := time.Date(2026, 3, 14, 14, 0, 0, 0, time.Local)
	if got := sched.NextRunTime(now); !got.Equal(want) {
		t.Errorf("NextRunTime = %v, want %v (later today)", got, want)
	}

	enableAutoSync(t, store, "06:00")
	want = time.Date(2026, 3, 15, 6, 0, 0, 0, time.Local)
	if got := sched.NextRunTime(now); !got.Equal(want) {
		t.Errorf("NextRunTime = %v, want %v (tomorrow)", got, want)
	}
}
