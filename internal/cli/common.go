package cli

import (
	"fmt"

	"github.com/mrlokans/marginalia/internal/config"
	"github.com/mrlokans/marginalia/internal/exporters"
	"github.com/mrlokans/marginalia/internal/parsers"
	"github.com/mrlokans/marginalia/internal/storage"
	"github.com/mrlokans/marginalia/internal/store"
)

// loadStore builds a manager backed by the configured bundle directory
// and loads every persisted bundle into it.
func loadStore(cfg *config.Config) (*store.Manager, error) {
	registry := parsers.NewRegistry()
	registry.Register(&parsers.WeReadParser{MinBareLineLen: cfg.Parsers.WeReadMinBareLineLen})
	registry.Register(&parsers.IReaderParser{MinBareLineLen: cfg.Parsers.IReaderMinBareLineLen})

	manager := store.NewManager(store.Options{
		Parsers:   registry,
		Renderers: exporters.NewDefaultRegistry(),
		Bundles:   storage.NewBundleStore(cfg.Storage.Dir),
		ExportDir: cfg.Export.Dir,
	})

	count, errs := manager.LoadAll()
	for _, err := range errs {
		fmt.Printf("⚠️  %v\n", err)
	}
	fmt.Printf("📚 Loaded %d books from %s\n", count, cfg.Storage.Dir)
	return manager, nil
}
