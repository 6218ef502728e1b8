package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insolvd/docpipe/internal/monitor"
)

var (
	apiURL       string
	pollInterval time.Duration
	stuckAfter   time.Duration
	autoRestart  bool
	maxRestarts  int
)

var rootCmd = &cobra.Command{
	Use:   "docpipe-watch [document-id]",
	Short: "Watch a document through the processing pipeline",
	Long: `Polls the ingestion API until the document reaches a terminal
status. Probes server liveness when progress stalls and can restart
processing for documents that appear stuck.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.Flags().StringVar(&apiURL, "api", "http://localhost:8080", "base URL of the ingestion API")
	rootCmd.Flags().DurationVar(&pollInterval, "interval", 2*time.Second, "poll interval (clamped to 1-3s)")
	rootCmd.Flags().DurationVar(&stuckAfter, "stuck-after", 105*time.Second, "no-progress window before the document is flagged stuck")
	rootCmd.Flags().BoolVar(&autoRestart, "auto-restart", false, "retry processing when the document is flagged stuck")
	rootCmd.Flags().IntVar(&maxRestarts, "max-restarts", 1, "maximum automatic restarts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	documentID := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := monitor.NewAPIClient(apiURL, 10*time.Second)
	watcher := monitor.New(client, monitor.Config{
		PollInterval: pollInterval,
		StuckAfter:   stuckAfter,
		AutoRestart:  autoRestart,
		MaxRestarts:  maxRestarts,
		Observer: func(event monitor.Event) {
			printEvent(cmd, event)
		},
	})

	snapshot, err := watcher.Run(ctx, documentID)
	if err != nil {
		if errors.Is(err, monitor.ErrStuck) && snapshot != nil {
			cmd.PrintErrf("document %s is stuck; last status %s at %d%%\n",
				documentID, snapshot.Status, snapshot.Progress)
			return err
		}
		return err
	}

	cmd.Printf("document %s finished: %s (%d%%)\n", documentID, snapshot.Status, snapshot.Progress)
	if snapshot.Error != "" {
		cmd.Printf("error: %s\n", snapshot.Error)
	}
	return nil
}

func printEvent(cmd *cobra.Command, event monitor.Event) {
	switch event.Type {
	case monitor.EventProgress:
		cmd.Printf("[%s] %s %d%%\n", time.Now().Format("15:04:05"), event.Snapshot.Status, event.Snapshot.Progress)
	case monitor.EventPollError:
		cmd.PrintErrf("poll error after %s: %v\n", event.Elapsed.Round(time.Second), event.Err)
	case monitor.EventLivenessProbe:
		if event.Err != nil {
			cmd.PrintErrf("no progress for %s, server probe failed: %v\n", event.Elapsed.Round(time.Second), event.Err)
			return
		}
		cmd.Printf("no progress for %s, server is alive\n", event.Elapsed.Round(time.Second))
	case monitor.EventStuck:
		cmd.PrintErrf("no progress for %s, document looks stuck\n", event.Elapsed.Round(time.Second))
	case monitor.EventRestarted:
		cmd.Printf("processing restarted\n")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
