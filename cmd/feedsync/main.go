// Package main provides the feed synchroniser CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"crazypromo/internal/feedsync"
	"crazypromo/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// errSyncFailures marks a run in which at least one store failed to sync.
var errSyncFailures = errors.New("one or more stores failed to sync")

type options struct {
	apiURL      string
	apiKey      string
	timeout     time.Duration
	concurrency int
	stores      []string
}

func main() {
	_ = godotenv.Load()
	logger.Init(os.Getenv("ENV"))
	os.Exit(execute())
}

func execute() int {
	defer logger.Sync()

	err := rootCmd().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errSyncFailures):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "feedsync",
		Short: "Synchronise partner store feeds",
		Long: `Fetch every configured partner feed through the CrazyPromo pipeline API.

Examples:
  feedsync                        # Sync all feed stores
  feedsync --store loja-a         # Sync one store by slug or ID
  feedsync list                   # Show the stores that would be synced
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api-url", envOr("CRAZYPROMO_API_URL", "http://localhost:8080"), "CrazyPromo API base URL")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("PIPELINE_API_KEY"), "Pipeline API key")
	flags.DurationVar(&opts.timeout, "timeout", envDuration("FEEDSYNC_TIMEOUT", 2*time.Minute), "Per-request timeout")
	flags.IntVar(&opts.concurrency, "concurrency", envInt("FEEDSYNC_CONCURRENCY", 4), "Stores synced in parallel")
	cmd.Flags().StringSliceVar(&opts.stores, "store", nil, "Only sync these store IDs or slugs")

	cmd.AddCommand(listCmd(opts))

	return cmd
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stores with a configured feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := newClient(opts)
			if err != nil {
				return err
			}
			stores, err := client.ListFeedStores(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(stores) == 0 {
				fmt.Fprintln(out, "No feed stores configured.")
				return nil
			}
			for _, s := range stores {
				last := "never"
				if s.LastFeedSync != nil {
					last = s.LastFeedSync.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%-36s  %-24s  %-8s  %s\n", s.ID, s.Slug, s.FeedType, last)
			}
			return nil
		},
	}
}

func runSync(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(opts)
	if err != nil {
		return err
	}

	log := logger.Named("feedsync")
	result, err := feedsync.NewRunner(client, opts.concurrency, log).Run(ctx, opts.stores)
	if err != nil {
		return fmt.Errorf("feed sync run failed: %w", err)
	}

	log.Infow("feed sync run completed",
		"stores_found", result.StoresFound,
		"stores_synced", result.StoresSynced,
		"imported", result.Imported,
		"updated", result.Updated,
		"entry_errors", result.Errors,
		"failures", len(result.Failures),
		"duration", result.Duration.String(),
	)

	for _, f := range result.Failures {
		log.Warnw("store sync failed", "store_id", f.StoreID, "store", f.Slug, "error", f.Err.Error())
	}

	if len(result.Failures) > 0 {
		return errSyncFailures
	}
	return nil
}

func newClient(opts *options) (*feedsync.Client, error) {
	if opts.apiKey == "" {
		return nil, errors.New("pipeline API key is required (--api-key or PIPELINE_API_KEY)")
	}
	return feedsync.NewClient(opts.apiURL, opts.apiKey, &http.Client{Timeout: opts.timeout}), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}
