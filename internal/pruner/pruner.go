// Package pruner converges dynamic secret configs flagged as deleting down
// to physical absence.
//
// The reconciler accepts point signals from the delete path and additionally
// sweeps every deleting config on a fixed schedule. The sweep is the crash
// recovery mechanism: a config whose delete crashed between the status flip
// and the signal is picked up on the next pass. Pruning is idempotent, so
// at-least-once delivery of signals is fine.
package pruner

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/systmms/leasevault/internal/errors"
	"github.com/systmms/leasevault/internal/leases"
	"github.com/systmms/leasevault/internal/logging"
	"github.com/systmms/leasevault/internal/store"
)

// Scheduler accepts prune commands for a config. Asynchronous; callers never
// block on lease teardown.
type Scheduler interface {
	PruneDynamicSecret(configID string)
}

// DefaultSweepSchedule is the cron spec for the recovery sweep.
const DefaultSweepSchedule = "@every 1m"

const signalBuffer = 64

// Reconciler implements Scheduler. Each prune pass revokes the config's
// outstanding leases and hard-deletes the row once none remain; partial
// failures leave the config in the deleting state for the next pass.
type Reconciler struct {
	store   store.Store
	index   leases.Index
	revoker leases.Revoker
	logger  *logging.Logger
	metrics *Metrics

	schedule string
	signals  chan string

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSweepSchedule overrides the recovery sweep cron spec.
func WithSweepSchedule(spec string) Option {
	return func(r *Reconciler) { r.schedule = spec }
}

// NewReconciler creates a reconciler. It does nothing until Start is called.
func NewReconciler(st store.Store, index leases.Index, revoker leases.Revoker, logger *logging.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:    st,
		index:    index,
		revoker:  revoker,
		logger:   logger,
		metrics:  NewMetrics(),
		schedule: DefaultSweepSchedule,
		signals:  make(chan string, signalBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PruneDynamicSecret enqueues a prune for the config. Never blocks: when the
// signal buffer is full the config is left to the recovery sweep.
func (r *Reconciler) PruneDynamicSecret(configID string) {
	select {
	case r.signals <- configID:
	default:
		r.logger.Warn("prune signal buffer full, config %s deferred to sweep", configID)
	}
}

// Start launches the signal drain goroutine and the sweep schedule.
func (r *Reconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reconciler already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() { r.SweepAll(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid sweep schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()

	go r.drain(ctx)
	r.running = true
	r.logger.Debug("pruning reconciler started (sweep %s)", r.schedule)
	return nil
}

// Stop halts the sweep schedule and the signal drain.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.cron.Stop()
	r.cancel()
	<-r.done
	r.running = false
}

func (r *Reconciler) drain(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case configID := <-r.signals:
			if err := r.Prune(ctx, configID); err != nil {
				r.logger.Error("prune of %s failed: %v", configID, err)
			}
		}
	}
}

// SweepAll prunes every config currently in the deleting state.
func (r *Reconciler) SweepAll(ctx context.Context) {
	deleting := store.StatusDeleting
	configs, err := r.store.Find(ctx, store.Filter{Status: &deleting})
	if err != nil {
		r.metrics.RecordFailure()
		r.logger.Error("sweep: listing deleting configs failed: %v", err)
		return
	}
	for _, cfg := range configs {
		if err := r.Prune(ctx, cfg.ID); err != nil {
			r.logger.Error("sweep: prune of %s failed: %v", cfg.ID, err)
		}
	}
}

// Prune revokes the config's outstanding leases and hard-deletes the row
// once zero remain. Safe to call repeatedly for the same id: a config that
// is already gone is a no-op.
func (r *Reconciler) Prune(ctx context.Context, configID string) error {
	r.metrics.RecordRun()

	outstanding, err := r.index.Find(ctx, leases.Filter{DynamicSecretID: configID})
	if err != nil {
		r.metrics.RecordFailure()
		return fmt.Errorf("listing leases for %s: %w", configID, err)
	}

	for _, lease := range outstanding {
		if err := r.revoker.Revoke(ctx, lease.ID); err != nil {
			// Leave the config deleting; the next pass retries the rest.
			r.metrics.RecordFailure()
			return fmt.Errorf("revoking lease %s: %w", lease.ID, err)
		}
		r.metrics.RecordRevocation()
		r.logger.Debug("revoked lease %s of config %s", lease.ID, configID)
	}

	remaining, err := r.index.Find(ctx, leases.Filter{DynamicSecretID: configID})
	if err != nil {
		r.metrics.RecordFailure()
		return fmt.Errorf("re-listing leases for %s: %w", configID, err)
	}
	if len(remaining) > 0 {
		r.logger.Debug("config %s still has %d leases, deferring delete", configID, len(remaining))
		return nil
	}

	if _, err := r.store.DeleteByID(ctx, configID); err != nil {
		if errors.IsNotFound(err) {
			return nil
		}
		r.metrics.RecordFailure()
		return fmt.Errorf("hard-deleting config %s: %w", configID, err)
	}
	r.metrics.RecordDeletion()
	r.logger.Info("pruned dynamic secret config %s", configID)
	return nil
}
