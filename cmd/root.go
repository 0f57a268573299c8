package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jorei-crawler",
		Short: "Harvests municipal ordinances from the jorei search API.",
		Long: `jorei-crawler walks every page of the jorei (municipal ordinance) search API
for an announcement-date range, writes one normalized JSON file per record, and
finishes with a JSON index of everything it wrote.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "optional YAML config file")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the running
// crawl, which then exits without writing the index.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
