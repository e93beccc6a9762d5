package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mrlokans/marginalia/internal/config"
)

// SearchCommand queries stored annotations from the terminal.
type SearchCommand struct {
	Query string
}

func NewSearchCommand() *SearchCommand {
	return &SearchCommand{}
}

// ParseFlags parses command line flags
func (cmd *SearchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s search <query>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Case-insensitive substring search over annotation content,\n")
		fmt.Fprintf(os.Stderr, "book titles, chapters and tags.\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Query = strings.Join(fs.Args(), " ")
	if strings.TrimSpace(cmd.Query) == "" {
		fs.Usage()
		return fmt.Errorf("a search query is required")
	}
	return nil
}

// Run executes the search command
func (cmd *SearchCommand) Run() error {
	cfg := config.NewConfig()

	manager, err := loadStore(cfg)
	if err != nil {
		return err
	}

	results := manager.Search(cmd.Query)
	if len(results) == 0 {
		fmt.Printf("No annotations match %q\n", cmd.Query)
		return nil
	}

	fmt.Printf("🔍 %d annotations match %q:\n\n", len(results), cmd.Query)
	for _, ann := range results {
		location := ann.BookTitle
		if ann.Chapter != "" {
			location += " / " + ann.Chapter
		}
		fmt.Printf("  [%s] %s\n      %s\n", ann.Kind, location, ann.Content)
	}
	return nil
}
