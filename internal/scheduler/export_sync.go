package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/marginalia/internal/exporters"
	"github.com/mrlokans/marginalia/internal/store"
)

// ExportSyncConfig controls the periodic render-to-disk job.
type ExportSyncConfig struct {
	Enabled  bool
	Schedule string // standard 5-field cron expression
	Renderer string
}

// ExportSyncScheduler periodically renders every stored book to the
// export directory, so an external note vault always has a fresh copy.
type ExportSyncScheduler struct {
	store  *store.Manager
	config ExportSyncConfig

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewExportSyncScheduler(manager *store.Manager, config ExportSyncConfig) *ExportSyncScheduler {
	return &ExportSyncScheduler{
		store:  manager,
		config: config,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sync is enabled.
func (s *ExportSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Export sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule export sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Export sync scheduler: started with schedule '%s'", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *ExportSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Export sync scheduler: stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *ExportSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// RunNow triggers an immediate sync outside the schedule.
func (s *ExportSyncScheduler) RunNow() {
	s.runSync()
}

func (s *ExportSyncScheduler) runSync() {
	books := s.store.ListBooks()
	log.Printf("Export sync: rendering %d books", len(books))

	exported := 0
	for _, book := range books {
		if _, err := s.store.ExportBook(book.Title, s.config.Renderer, exporters.DefaultOptions()); err != nil {
			log.Printf("Export sync: failed to export %q: %v", book.Title, err)
			continue
		}
		exported++
	}

	log.Printf("Export sync: exported %d/%d books", exported, len(books))
}
