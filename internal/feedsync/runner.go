package feedsync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoreClient defines the pipeline API operations needed by the runner.
type StoreClient interface {
	ListFeedStores(ctx context.Context) ([]FeedStore, error)
	SyncStore(ctx context.Context, storeID string) (*SyncResult, error)
}

// StoreFailure records a store whose sync request failed.
type StoreFailure struct {
	StoreID string
	Slug    string
	Err     error
}

// RunResult contains the outcome of a synchronisation run.
type RunResult struct {
	StoresFound  int
	StoresSynced int
	Imported     int
	Updated      int
	Errors       int
	Failures     []StoreFailure
	Duration     time.Duration
}

// Runner syncs every feed store through the pipeline API.
type Runner struct {
	client      StoreClient
	concurrency int
	logger      *zap.SugaredLogger
}

// NewRunner creates a new Runner. Concurrency below 1 is treated as 1.
func NewRunner(client StoreClient, concurrency int, logger *zap.SugaredLogger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{client: client, concurrency: concurrency, logger: logger}
}

// Run executes a single synchronisation cycle. When only is non-empty, stores
// whose ID or slug is not listed are skipped.
func (r *Runner) Run(ctx context.Context, only []string) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	stores, err := r.client.ListFeedStores(ctx)
	if err != nil {
		return nil, err
	}
	stores = filterStores(stores, only)
	result.StoresFound = len(stores)

	if len(stores) == 0 {
		r.logger.Info("no feed stores found, nothing to do")
		result.Duration = time.Since(start)
		return result, nil
	}

	jobs := make(chan FeedStore)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := min(r.concurrency, len(stores))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for store := range jobs {
				r.logger.Infow("syncing store", "store", store.Slug, "feed_type", store.FeedType)
				res, err := r.client.SyncStore(ctx, store.ID)

				mu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, StoreFailure{StoreID: store.ID, Slug: store.Slug, Err: err})
				} else {
					result.StoresSynced++
					result.Imported += res.Imported
					result.Updated += res.Updated
					result.Errors += res.Errors
				}
				mu.Unlock()

				if err != nil {
					r.logger.Warnw("store sync failed", "store", store.Slug, "error", err)
					continue
				}
				r.logger.Infow("store synced",
					"store", store.Slug,
					"imported", res.Imported,
					"updated", res.Updated,
					"errors", res.Errors,
				)
			}
		}()
	}

	func() {
		defer close(jobs)
		for _, store := range stores {
			select {
			case jobs <- store:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()

	result.Duration = time.Since(start)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func filterStores(stores []FeedStore, only []string) []FeedStore {
	if len(only) == 0 {
		return stores
	}
	want := make(map[string]struct{}, len(only))
	for _, s := range only {
		want[s] = struct{}{}
	}
	var out []FeedStore
	for _, s := range stores {
		_, byID := want[s.ID]
		_, bySlug := want[s.Slug]
		if byID || bySlug {
			out = append(out, s)
		}
	}
	return out
}
