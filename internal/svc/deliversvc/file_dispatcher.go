package deliversvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
	"github.com/mkrupp/memeforge/internal/repo/blobhandle"
	"github.com/mkrupp/memeforge/internal/svc/probesvc"
)

// FileDispatcher implements Deliverer by walking an ordered strategy chain,
// retrying each strategy a configured number of times before moving on.
type FileDispatcher struct {
	config DispatcherConfig
	log    logging.Logger
	chain  []Strategy

	// sleep is the inter-attempt delay hook.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Deliverer = (*FileDispatcher)(nil)

// FileDispatcherFactory creates a factory function that returns a new
// FileDispatcher. The factory function implements the DelivererFactory type.
func FileDispatcherFactory(
	cfg DispatcherConfig,
	registry *blobhandle.Registry,
	strategyOrder []string,
) DelivererFactory {
	return func(ctx context.Context) (Deliverer, error) {
		return NewFileDispatcher(cfg, registry, strategyOrder), nil
	}
}

// NewFileDispatcher creates a new FileDispatcher. strategyOrder selects and
// orders the chain by strategy name (as recommended by a fallback plan); nil
// means the full default order.
func NewFileDispatcher(
	cfg DispatcherConfig,
	registry *blobhandle.Registry,
	strategyOrder []string,
) *FileDispatcher {
	available := map[string]Strategy{
		probesvc.StrategyStagedRename:    &stagedRenameStrategy{registry: registry, targetDir: cfg.TargetDir},
		probesvc.StrategyExclusiveCreate: &exclusiveCreateStrategy{targetDir: cfg.TargetDir, maxBytes: cfg.MaxDirectBytes},
		probesvc.StrategyUniqueSuffix:    &uniqueSuffixStrategy{targetDir: cfg.TargetDir},
		probesvc.StrategySpilloverDir:    &spilloverDirStrategy{dir: cfg.SpilloverDir},
		probesvc.StrategyTruncateWrite:   &truncateWriteStrategy{targetDir: cfg.TargetDir},
	}

	if strategyOrder == nil {
		strategyOrder = []string{
			probesvc.StrategyStagedRename,
			probesvc.StrategyExclusiveCreate,
			probesvc.StrategyUniqueSuffix,
			probesvc.StrategySpilloverDir,
			probesvc.StrategyTruncateWrite,
		}
	}

	chain := make([]Strategy, 0, len(strategyOrder))

	for _, name := range strategyOrder {
		if strategy, ok := available[name]; ok {
			chain = append(chain, strategy)
		}
	}

	return &FileDispatcher{
		config: cfg,
		log: logging.GetLogger("svc.deliversvc.file_dispatcher").With(
			logging.Group("dispatcher",
				"targetDir", cfg.TargetDir,
				"retryAttempts", cfg.RetryAttempts,
			),
		),
		chain: chain,
		sleep: sleepCtx,
	}
}

// Chain returns the names of the configured strategies in order.
func (d *FileDispatcher) Chain() []string {
	names := make([]string, 0, len(d.chain))
	for _, strategy := range d.chain {
		names = append(names, strategy.Name())
	}

	return names
}

// Deliver implements Deliverer.Deliver.
func (d *FileDispatcher) Deliver(
	ctx context.Context,
	payload domain.EncodedPayload,
	filename string,
) (receipt Receipt, err error) {
	defer func() {
		d.log.DebugContext(ctx, "deliver",
			"filename", filename,
			"strategy", receipt.Strategy,
			"attempts", receipt.Attempts,
			"error", err,
		)
	}()

	totalAttempts := 0
	failures := make([]domain.StrategyFailure, 0, len(d.chain))

	for _, strategy := range d.chain {
		attempts := 0

		var lastErr error

		for attempts < max(1, d.config.RetryAttempts) {
			if err := ctx.Err(); err != nil {
				lastErr = fmt.Errorf("delivery aborted: %w", err)

				break
			}

			if attempts > 0 {
				if err := d.sleep(ctx, d.config.RetryDelay); err != nil {
					lastErr = fmt.Errorf("delivery aborted: %w", err)

					break
				}
			}

			attempts++
			totalAttempts++

			path, err := strategy.Attempt(ctx, payload, filename)
			if err == nil {
				return Receipt{Path: path, Strategy: strategy.Name(), Attempts: totalAttempts}, nil
			}

			lastErr = err
		}

		failures = append(failures, domain.StrategyFailure{
			Strategy: strategy.Name(),
			Attempts: attempts,
			Err:      lastErr,
		})
	}

	return Receipt{Path: "", Strategy: "", Attempts: totalAttempts},
		&domain.DeliverError{Filename: filename, Chain: failures}
}

// DeliverMany implements Deliverer.DeliverMany. Results are returned in
// input order regardless of concurrency.
func (d *FileDispatcher) DeliverMany(
	ctx context.Context,
	items []BatchItem,
	opts BatchOptions,
) []BatchResult {
	results := make([]BatchResult, len(items))

	if opts.Concurrency < 2 {
		for i, item := range items {
			if i > 0 && opts.InterDelay > 0 {
				if err := d.sleep(ctx, opts.InterDelay); err != nil {
					results[i] = BatchResult{Receipt: Receipt{}, Err: err} //nolint:exhaustruct

					continue
				}
			}

			receipt, err := d.Deliver(ctx, item.Payload, item.Filename)
			results[i] = BatchResult{Receipt: receipt, Err: err}
		}

		return results
	}

	sem := semaphore.NewWeighted(int64(opts.Concurrency))

	var wg sync.WaitGroup

	for i, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			results[i] = BatchResult{Receipt: Receipt{}, Err: fmt.Errorf("acquire slot: %w", err)} //nolint:exhaustruct

			continue
		}

		wg.Add(1)

		go func(i int, item BatchItem) {
			defer wg.Done()
			defer sem.Release(1)

			receipt, err := d.Deliver(ctx, item.Payload, item.Filename)
			results[i] = BatchResult{Receipt: receipt, Err: err}
		}(i, item)
	}

	wg.Wait()

	return results
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-timer.C:
		return nil
	}
}
