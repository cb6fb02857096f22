package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DueRun identifies a template whose next run time has passed
type DueRun struct {
	TemplateID uuid.UUID
	RunKey     string
	DueAt      time.Time
}

// DueSource lists the runs due at now
type DueSource interface {
	DueRuns(ctx context.Context, now time.Time) ([]DueRun, error)
}

// JobSubmitter accepts jobs; *Scheduler implements it
type JobSubmitter interface {
	SubmitJob(job *Job) error
}

// Locker grants a short exclusive lock across instances. ok is false when
// another instance holds it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// TriggerConfig holds trigger settings
type TriggerConfig struct {
	CheckInterval time.Duration
	LockKey       string
	LockTTL       time.Duration
	MaxRetries    int
}

// DefaultTriggerConfig returns default trigger configuration
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		CheckInterval: time.Minute,
		LockKey:       "recurring-scan",
		LockTTL:       30 * time.Second,
	}
}

// RecurringTrigger scans for due templates on every tick and submits one job per due run
type RecurringTrigger struct {
	config    TriggerConfig
	source    DueSource
	submitter JobSubmitter
	locker    Locker
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// TriggerOption configures a RecurringTrigger
type TriggerOption func(*RecurringTrigger)

// WithLocker makes each scan take the lock first; without one every instance scans
func WithLocker(l Locker) TriggerOption {
	return func(t *RecurringTrigger) {
		t.locker = l
	}
}

// WithNow replaces time.Now, for tests
func WithNow(now func() time.Time) TriggerOption {
	return func(t *RecurringTrigger) {
		t.now = now
	}
}

// NewRecurringTrigger creates a trigger
func NewRecurringTrigger(config TriggerConfig, source DueSource, submitter JobSubmitter, logger *zap.Logger, opts ...TriggerOption) *RecurringTrigger {
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultTriggerConfig().CheckInterval
	}
	if config.LockKey == "" {
		config.LockKey = DefaultTriggerConfig().LockKey
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultTriggerConfig().LockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &RecurringTrigger{
		config:    config,
		source:    source,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the ticker loop in the background
func (t *RecurringTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.isRunning {
		return nil
	}
	t.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Recurring trigger started",
		zap.Duration("check_interval", t.config.CheckInterval),
		zap.Bool("distributed_lock", t.locker != nil),
	)
	return nil
}

// Stop stops the loop and waits for the current scan
func (t *RecurringTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.cancel()
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Recurring trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *RecurringTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.Tick(ctx); err != nil {
				t.logger.Error("Recurring scan failed", zap.Error(err))
			}
		}
	}
}

// Tick performs one scan and returns the number of jobs submitted
func (t *RecurringTrigger) Tick(ctx context.Context) (int, error) {
	if t.locker != nil {
		release, ok, err := t.locker.TryLock(ctx, t.config.LockKey, t.config.LockTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			t.logger.Debug("Another instance is scanning, skipping tick")
			return 0, nil
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				t.logger.Warn("Failed to release scan lock", zap.Error(err))
			}
		}()
	}

	due, err := t.source.DueRuns(ctx, t.now())
	if err != nil {
		return 0, err
	}

	submitted := 0
	var errs []error
	for _, run := range due {
		job := NewJob(run.TemplateID, run.RunKey, run.DueAt, t.config.MaxRetries)
		if err := t.submitter.SubmitJob(job); err != nil {
			errs = append(errs, err)
			t.logger.Warn("Failed to submit recurring run",
				zap.String("run_key", run.RunKey),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}
	if submitted > 0 {
		t.logger.Info("Recurring runs submitted", zap.Int("count", submitted))
	}
	return submitted, errors.Join(errs...)
}
