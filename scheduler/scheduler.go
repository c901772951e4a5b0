// Package scheduler provides automated regimen library reloading and
// staleness monitoring. It rescans the library directory on a fixed
// interval and swaps fresh snapshots into the data container using
// dependency injection.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/nkiranraj/oncov3/interfaces"
	"github.com/nkiranraj/oncov3/logging"
	"github.com/nkiranraj/oncov3/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// Scheduler handles library reloads and staleness monitoring using
// dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.RegimenLoader
	dir       string
	interval  time.Duration
	scheduler *gocron.Scheduler
	stopMon   chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.RegimenLoader, dir string, interval time.Duration) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		dir:       dir,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.Local),
		stopMon:   make(chan struct{}),
	}
}

// Start performs the initial library load and schedules periodic rescans
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.reloadLibrary(); err != nil {
		logging.Error("Failed to perform initial library load", "error", err)
		return fmt.Errorf("initial library load failed: %w", err)
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		if err := s.reloadLibrary(); err != nil {
			logging.Error("Failed to reload regimen library", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule library rescans", "error", err)
		return fmt.Errorf("failed to schedule library rescans: %w", err)
	}

	s.scheduler.StartAsync()

	s.startStalenessMonitoring()

	return nil
}

// Stop stops the scheduler and the staleness monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	close(s.stopMon)
}

// NextUpdate returns when the next rescan is due
func (s *Scheduler) NextUpdate() time.Time {
	return s.dataStore.GetLastUpdated().Add(s.interval)
}

// reloadLibrary rescans the library directory and swaps in the new snapshot
func (s *Scheduler) reloadLibrary() error {
	// Prevent concurrent reloads
	if !s.dataStore.BeginUpdate() {
		logging.Info("Library reload already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	start := time.Now()

	regimens, byID, err := s.loader.LoadLibrary(s.dir)
	if err != nil {
		return fmt.Errorf("library scan failed: %w", err)
	}

	// Atomic swap (zero downtime replacement)
	s.dataStore.UpdateData(regimens, byID)
	metrics.RegimenLibrarySize.Set(float64(len(regimens)))

	logging.Info("Regimen library reload completed",
		"duration", time.Since(start).String(),
		"regimen_count", len(regimens))

	return nil
}

// startStalenessMonitoring warns when the snapshot has not been refreshed
// for several rescan intervals
func (s *Scheduler) startStalenessMonitoring() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopMon:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > 3*s.interval {
					logging.Warn("Regimen library snapshot is stale",
						"last_updated", lastUpdate.Format(time.RFC3339))
				}
			}
		}
	}()
}
