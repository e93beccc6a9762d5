package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrlokans/marginalia/internal/config"
	"github.com/mrlokans/marginalia/internal/exporters"
)

// ExportCommand renders stored books into the export directory.
type ExportCommand struct {
	Title          string
	Renderer       string
	GroupByChapter bool
	SortBy         string
	All            bool
}

func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	fs.StringVar(&cmd.Title, "title", "", "Book title to export")
	fs.StringVar(&cmd.Renderer, "renderer", "markdown", "Output renderer")
	fs.BoolVar(&cmd.GroupByChapter, "group-by-chapter", false, "Group annotations under chapter headings")
	fs.StringVar(&cmd.SortBy, "sort", "position", "Sort order: position, date or chapter")
	fs.BoolVar(&cmd.All, "all", false, "Export every stored book")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Render stored annotations to files in the export directory.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export -title \"三体\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -all -group-by-chapter\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Title == "" && !cmd.All {
		fs.Usage()
		return fmt.Errorf("either -title or -all is required")
	}
	return nil
}

// Run executes the export command
func (cmd *ExportCommand) Run() error {
	cfg := config.NewConfig()

	manager, err := loadStore(cfg)
	if err != nil {
		return err
	}

	opts := exporters.DefaultOptions()
	opts.GroupByChapter = cmd.GroupByChapter
	opts.SortBy = exporters.SortBy(cmd.SortBy)

	titles := []string{cmd.Title}
	if cmd.All {
		titles = titles[:0]
		for _, book := range manager.ListBooks() {
			titles = append(titles, book.Title)
		}
	}

	if len(titles) == 0 {
		fmt.Println("ℹ️  No books to export")
		return nil
	}

	for _, title := range titles {
		path, err := manager.ExportBook(title, cmd.Renderer, opts)
		if err != nil {
			return fmt.Errorf("failed to export %q: %w", title, err)
		}
		fmt.Printf("  📖 %s → %s\n", title, filepath.Base(path))
	}

	fmt.Printf("✅ Exported %d books to %s\n", len(titles), cfg.Export.Dir)
	return nil
}
