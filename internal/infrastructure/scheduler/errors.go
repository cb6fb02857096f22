package scheduler

import "errors"

// Sentinels returned by SubmitJob and NewScheduler. The trigger logs a
// rejected submission and picks the run up again on its next scan.
var (
	ErrSchedulerNotRunning = errors.New("recurring scheduler is not running")
	ErrJobQueueFull        = errors.New("recurring run queue is full")
	ErrInvalidConfig       = errors.New("invalid recurring scheduler configuration")
)
