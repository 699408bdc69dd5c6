package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"archivarr/internal/broadcast"
	"archivarr/internal/catalog"
	"archivarr/internal/cfg"
	"archivarr/internal/database"
	"archivarr/internal/domain/keys"
	"archivarr/internal/downloads"
	"archivarr/internal/jobs"
	"archivarr/internal/logging"
	"archivarr/internal/repo"
	"archivarr/internal/scheduler"
	"archivarr/internal/server"

	"github.com/gofrs/flock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := cfg.Execute(); err != nil {
		return err
	}
	if !cfg.GetBool("execute") {
		return nil
	}

	if err := logging.Setup(cfg.GetString(keys.LogFilePath), cfg.GetInt(keys.DebugLevel)); err != nil {
		return err
	}

	storageDir := cfg.GetString(keys.StorageDir)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	dbPath := cfg.GetString(keys.DBPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	if !cfg.GetBool(keys.SkipLock) {
		lock := flock.New(dbPath + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire instance lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another instance is already running (lock at %s.lock)", dbPath)
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				logging.E("Failed to release instance lock: %v", err)
			}
		}()
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.E("Failed to close database: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := repo.InitStores(db)
	hub := broadcast.NewHub()
	downloader := downloads.NewYTDLP(cfg.GetString(keys.YTDLPBin))
	worker := downloads.NewWorker(store.QueueStore(), store.VideoStore(), store.ErrorLogStore(), hub, downloader)

	newClient := func(apiKey string) catalog.Client {
		return catalog.NewHTTPClient(apiKey)
	}
	manager := jobs.NewManager(store, hub, worker, newClient, storageDir, cfg.GetString(keys.APIKey))
	sched := scheduler.New(store, manager)

	// Flag override for the configured quality cap.
	if q := cfg.GetString(keys.MaxQuality); q != "" {
		syncCfg, err := store.ConfigStore().Get()
		if err != nil {
			return err
		}
		syncCfg.MaxVideoQuality = q
		if err := store.ConfigStore().Update(syncCfg); err != nil {
			return err
		}
	}

	go hub.Run(ctx)
	go sched.Run(ctx)

	if err := manager.ResumeInterrupted(); err != nil {
		logging.E("Failed to resume interrupted work: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.GetInt(keys.Port))
	router := server.NewRouter(store, hub, manager, sched)
	if err := server.StartServer(ctx, addr, router); err != nil {
		return err
	}

	// Let an active run unwind before the DB closes.
	manager.Stop()
	manager.Wait()
	logging.I("Archivarr shut down cleanly")
	return nil
}
