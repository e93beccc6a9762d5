package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/marginalia/internal/config"
)

// StatsCommand prints store-wide counters.
type StatsCommand struct{}

func NewStatsCommand() *StatsCommand {
	return &StatsCommand{}
}

// ParseFlags parses command line flags
func (cmd *StatsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s stats\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Print annotation counts per source and kind.\n")
	}

	return fs.Parse(args)
}

// Run executes the stats command
func (cmd *StatsCommand) Run() error {
	cfg := config.NewConfig()

	manager, err := loadStore(cfg)
	if err != nil {
		return err
	}

	stats := manager.Statistics()
	fmt.Printf("📚 Books:       %d\n", stats.TotalBooks)
	fmt.Printf("📝 Annotations: %d\n", stats.TotalAnnotations)

	if len(stats.BySource) > 0 {
		fmt.Println("\nBy source:")
		for source, count := range stats.BySource {
			fmt.Printf("  %-10s %d\n", source, count)
		}
	}
	if len(stats.ByKind) > 0 {
		fmt.Println("\nBy kind:")
		for kind, count := range stats.ByKind {
			fmt.Printf("  %-10s %d\n", kind, count)
		}
	}
	return nil
}
