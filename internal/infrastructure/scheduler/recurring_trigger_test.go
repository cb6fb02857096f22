package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockDueSource struct {
	mock.Mock
}

func (m *mockDueSource) DueRuns(ctx context.Context, now time.Time) ([]DueRun, error) {
	args := m.Called(ctx, now)
	runs, _ := args.Get(0).([]DueRun)
	return runs, args.Error(1)
}

type collectingSubmitter struct {
	mu   sync.Mutex
	jobs []*Job
	err  error
}

func (s *collectingSubmitter) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

type fakeLocker struct {
	held     bool
	released int
	err      error
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	return func(context.Context) error {
		l.held = false
		l.released++
		return nil
	}, true, nil
}

var triggerNow = time.Date(2024, 2, 15, 9, 0, 30, 0, time.UTC)

func dueRuns() []DueRun {
	a, b := uuid.New(), uuid.New()
	due := time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)
	return []DueRun{
		{TemplateID: a, RunKey: a.String() + ":2024-02-15T09:00:00Z", DueAt: due},
		{TemplateID: b, RunKey: b.String() + ":2024-02-15T09:00:00Z", DueAt: due},
	}
}

func TestRecurringTrigger_Tick(t *testing.T) {
	source := &mockDueSource{}
	runs := dueRuns()
	source.On("DueRuns", mock.Anything, triggerNow).Return(runs, nil)
	submitter := &collectingSubmitter{}
	locker := &fakeLocker{}

	trigger := NewRecurringTrigger(DefaultTriggerConfig(), source, submitter, zap.NewNop(),
		WithLocker(locker), WithNow(func() time.Time { return triggerNow }))

	n, err := trigger.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, submitter.jobs, 2)
	assert.Equal(t, runs[0].RunKey, submitter.jobs[0].RunKey)
	assert.Equal(t, runs[1].TemplateID, submitter.jobs[1].TemplateID)
	assert.Equal(t, 1, locker.released)
	source.AssertExpectations(t)
}

func TestRecurringTrigger_SkipsWhenLockHeld(t *testing.T) {
	source := &mockDueSource{}
	trigger := NewRecurringTrigger(DefaultTriggerConfig(), source, &collectingSubmitter{}, nil,
		WithLocker(&fakeLocker{held: true}))

	n, err := trigger.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	source.AssertNotCalled(t, "DueRuns", mock.Anything, mock.Anything)
}

func TestRecurringTrigger_Errors(t *testing.T) {
	t.Run("lock error", func(t *testing.T) {
		trigger := NewRecurringTrigger(DefaultTriggerConfig(), &mockDueSource{}, &collectingSubmitter{}, nil,
			WithLocker(&fakeLocker{err: errors.New("redis down")}))
		_, err := trigger.Tick(context.Background())
		assert.Error(t, err)
	})

	t.Run("source error", func(t *testing.T) {
		source := &mockDueSource{}
		source.On("DueRuns", mock.Anything, mock.Anything).Return(nil, errors.New("store down"))
		trigger := NewRecurringTrigger(DefaultTriggerConfig(), source, &collectingSubmitter{}, nil)
		_, err := trigger.Tick(context.Background())
		assert.Error(t, err)
	})

	t.Run("submit error is joined", func(t *testing.T) {
		source := &mockDueSource{}
		source.On("DueRuns", mock.Anything, mock.Anything).Return(dueRuns(), nil)
		trigger := NewRecurringTrigger(DefaultTriggerConfig(), source, &collectingSubmitter{err: ErrJobQueueFull}, nil)
		n, err := trigger.Tick(context.Background())
		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrJobQueueFull)
	})
}

func TestRecurringTrigger_LoopFeedsScheduler(t *testing.T) {
	source := &mockDueSource{}
	source.On("DueRuns", mock.Anything, mock.Anything).Return(dueRuns()[:1], nil).Once()
	source.On("DueRuns", mock.Anything, mock.Anything).Return([]DueRun{}, nil)

	exec := &recordingExecutor{}
	s, err := NewScheduler(testConfig(), exec, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	cfg := DefaultTriggerConfig()
	cfg.CheckInterval = 5 * time.Millisecond
	trigger := NewRecurringTrigger(cfg, source, s, zap.NewNop())
	require.NoError(t, trigger.Start(context.Background()))

	assert.Eventually(t, func() bool { return exec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))
}
