package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mspro-labs/stock-watch/internal/differ"
	"mspro-labs/stock-watch/internal/logx"
	"mspro-labs/stock-watch/internal/models"
	"mspro-labs/stock-watch/internal/state"
)

type Fetcher interface {
	Fetch(ctx context.Context) (models.Snapshot, error)
}

type Notifier interface {
	Notify(ctx context.Context, delta models.Delta) (bool, error)
}

// Runner executes one fetch -> diff -> notify -> persist pass.
type Runner struct {
	fetcher  Fetcher
	store    state.Store
	notifier Notifier
}

func New(f Fetcher, s state.Store, n Notifier) *Runner {
	return &Runner{fetcher: f, store: s, notifier: n}
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Current  models.Snapshot
	Delta    models.Delta
	Notified bool
	Duration time.Duration
}

// Run performs one pass. The snapshot is persisted only once the delta has
// been delivered (or was empty), so a failed delivery is retried next run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	logger := logx.With("pipeline").With().Str("run_id", res.RunID).Logger()

	// 1. Fetch
	current, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return res, err
	}
	res.Current = current

	// 2. Baseline
	previous := r.store.LoadPrevious(ctx)

	// 3. Diff
	res.Delta = differ.Diff(current, previous)
	logger.Info().Int("stores", len(current)).Int("new_items", res.Delta.Len()).Msg("diff complete")

	// 4. Notify, then remember what was delivered
	if res.Delta.Len() > 0 {
		res.Notified, err = r.notifier.Notify(ctx, res.Delta)
		if err != nil {
			logger.Error().Err(err).Msg("delivery failed, state not advanced")
			return res, err
		}
		if nl, ok := r.store.(state.NotificationLog); ok {
			if err := nl.MarkNotified(ctx, res.RunID, res.Delta); err != nil {
				logger.Warn().Err(err).Msg("failed to record notification")
			}
		}
	}

	// 5. Persist
	if err := r.store.SaveCurrent(ctx, current); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	logger.Info().Bool("notified", res.Notified).Dur("took", res.Duration).Msg("run complete")
	return res, nil
}
