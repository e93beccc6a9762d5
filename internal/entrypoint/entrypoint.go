package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/marginalia/internal/config"
	"github.com/mrlokans/marginalia/internal/exporters"
	http_controllers "github.com/mrlokans/marginalia/internal/http"
	"github.com/mrlokans/marginalia/internal/parsers"
	"github.com/mrlokans/marginalia/internal/scheduler"
	"github.com/mrlokans/marginalia/internal/storage"
	"github.com/mrlokans/marginalia/internal/store"
	"github.com/mrlokans/marginalia/internal/watch"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Marginalia v%s", version)

	registry := parsers.NewRegistry()
	registry.Register(&parsers.WeReadParser{MinBareLineLen: cfg.Parsers.WeReadMinBareLineLen})
	registry.Register(&parsers.IReaderParser{MinBareLineLen: cfg.Parsers.IReaderMinBareLineLen})

	manager := store.NewManager(store.Options{
		Parsers:   registry,
		Renderers: exporters.NewDefaultRegistry(),
		Bundles:   storage.NewBundleStore(cfg.Storage.Dir),
		ExportDir: cfg.Export.Dir,
	})

	eventLog := store.NewEventLog(200)
	manager.Subscribe(eventLog)

	count, errs := manager.LoadAll()
	for _, err := range errs {
		log.Printf("WARNING: %v", err)
	}
	log.Printf("Loaded %d books from %s", count, cfg.Storage.Dir)

	backgroundCtx, cancelBackground := context.WithCancel(context.Background())

	exportSync := scheduler.NewExportSyncScheduler(manager, scheduler.ExportSyncConfig{
		Enabled:  cfg.ExportSync.Enabled,
		Schedule: cfg.ExportSync.Schedule,
		Renderer: cfg.ExportSync.Renderer,
	})
	if err := exportSync.Start(backgroundCtx); err != nil {
		log.Fatalf("Failed to start export sync scheduler: %v", err)
	}

	if cfg.Inbox.Enabled {
		watcher := watch.NewInboxWatcher(manager, cfg.Inbox.Dir)
		go func() {
			if err := watcher.Run(backgroundCtx); err != nil {
				log.Printf("Inbox watcher stopped: %v", err)
			}
		}()
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Store:            manager,
		EventLog:         eventLog,
		Parsers:          registry,
		OCRMinConfidence: cfg.OCR.MinConfidence,
		Version:          version,
	})

	onShutdown := func(ctx context.Context) {
		cancelBackground()
		exportSync.Stop()

		saved, errs := manager.PersistAll()
		for _, err := range errs {
			log.Printf("Error persisting bundle: %v", err)
		}
		log.Printf("Persisted %d bundles", saved)
	}

	Serve(router, cfg, onShutdown)
}
