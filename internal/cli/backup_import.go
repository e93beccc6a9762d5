package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrlokans/marginalia/internal/backup"
	"github.com/mrlokans/marginalia/internal/config"
)

// BackupImportCommand imports annotations from an e-reader backup
// SQLite database.
type BackupImportCommand struct {
	DatabasePath string
	Verbose      bool
}

func NewBackupImportCommand() *BackupImportCommand {
	return &BackupImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *BackupImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup-import", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the backup database (defaults to BACKUP_DATABASE_PATH)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print per-book counts")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup-import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import annotations straight from an e-reader backup database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s backup-import -db ~/backups/reader.db\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the backup import command
func (cmd *BackupImportCommand) Run() error {
	cfg := config.NewConfig()
	if cmd.DatabasePath == "" {
		cmd.DatabasePath = cfg.Backup.DatabasePath
	}

	absPath, err := filepath.Abs(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	fmt.Printf("📦 Reading backup database: %s\n", absPath)

	reader := backup.NewBackupDBReader(absPath)
	notes, err := reader.GetNotes()
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if len(notes) == 0 {
		fmt.Println("⚠️  No annotations found in backup")
		return nil
	}
	fmt.Printf("📝 Found %d annotations in backup\n", len(notes))

	manager, err := loadStore(cfg)
	if err != nil {
		return err
	}

	bundles := backup.ToBundles(notes)
	for _, b := range bundles {
		ingested := manager.ImportBundle(b)
		if cmd.Verbose {
			fmt.Printf("  📖 %s: %d annotations\n", ingested.Metadata.Title, ingested.Metadata.TotalNotes)
		}
	}

	saved, errs := manager.PersistAll()
	for _, err := range errs {
		fmt.Printf("  ❌ %v\n", err)
	}

	fmt.Printf("✅ Imported %d books, saved %d bundles to %s\n", len(bundles), saved, cfg.Storage.Dir)
	return nil
}
