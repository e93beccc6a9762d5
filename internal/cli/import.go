package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/marginalia/internal/config"
)

// ImportCommand imports an annotation export file into the store.
type ImportCommand struct {
	FilePath string
	Format   string
	Verbose  bool
}

func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the export file to import (required)")
	fs.StringVar(&cmd.Format, "format", "", "Parser to use (weread, ireader); auto-detected when empty")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every imported annotation")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a reading-app export file into the annotation store.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -file notes.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -file backup.txt -format ireader\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		fs.Usage()
		return fmt.Errorf("-file is required")
	}
	return nil
}

// Run executes the import command
func (cmd *ImportCommand) Run() error {
	cfg := config.NewConfig()

	manager, err := loadStore(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cmd.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cmd.FilePath, err)
	}

	format := cmd.Format
	if format == "" {
		format = manager.FormatHintForFile(cmd.FilePath)
	}

	bundle, err := manager.ImportFrom(string(data), format)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("✅ Imported %q: %d annotations\n", bundle.Metadata.Title, bundle.Metadata.TotalNotes)

	if cmd.Verbose {
		for _, ann := range bundle.Annotations {
			fmt.Printf("  [%s] %s\n", ann.Kind, ann.Content)
		}
	}

	if err := manager.Persist(bundle.Metadata.Title); err != nil {
		return fmt.Errorf("failed to persist bundle: %w", err)
	}
	fmt.Printf("💾 Saved to %s\n", cfg.Storage.Dir)
	return nil
}
