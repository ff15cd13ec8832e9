package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Task is one pipeline execution.
type Task func(ctx context.Context) error

// Runner executes a task a bounded number of times.
type Runner interface {
	Run(ctx context.Context) (int, error)
}

// Loop runs a task a fixed number of times with a fixed pause in between.
// The pause starts when the previous run ends, so cadence drifts by the
// run time. There is no pause after the last run.
type Loop struct {
	repetitions int
	delay       time.Duration
	task        Task
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewLoop creates a new Loop.
func NewLoop(repetitions int, delay time.Duration, task Task, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		repetitions: repetitions,
		delay:       delay,
		task:        task,
		logger:      logger,
		sleep:       sleepContext,
	}
}

// Run executes the task until the repetitions are exhausted, the task fails
// or ctx is cancelled. It returns the number of runs started.
func (l *Loop) Run(ctx context.Context) (int, error) {
	for i := 0; i < l.repetitions; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		l.logger.Info("scheduler: running cycle", "run", i+1, "repetitions", l.repetitions)
		if err := l.task(ctx); err != nil {
			return i + 1, fmt.Errorf("run %d of %d: %w", i+1, l.repetitions, err)
		}

		if i < l.repetitions-1 {
			l.logger.Debug("scheduler: sleeping", "delay", l.delay)
			if err := l.sleep(ctx, l.delay); err != nil {
				return i + 1, err
			}
		}
	}

	l.logger.Info("scheduler: completed all repetitions", "runs", l.repetitions)
	return l.repetitions, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Cron runs a task on a cron schedule, one run at a time, until the
// repetitions are exhausted or a run fails.
type Cron struct {
	scheduler   *gocron.Scheduler
	expr        string
	repetitions int
	task        Task
	logger      *slog.Logger
}

// NewCron creates a Cron runner. Expressions with six fields include seconds.
func NewCron(expr string, repetitions int, task Task, logger *slog.Logger) *Cron {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cron{
		scheduler:   gocron.NewScheduler(time.UTC),
		expr:        expr,
		repetitions: repetitions,
		task:        task,
		logger:      logger,
	}
}

// Run blocks until the last scheduled run finishes, a run fails or ctx is cancelled.
func (c *Cron) Run(ctx context.Context) (int, error) {
	var (
		mu       sync.Mutex
		runs     int
		finished bool
		done     = make(chan error, 1)
	)

	finish := func(err error) {
		finished = true
		done <- err
	}

	sched := c.scheduler
	if len(strings.Fields(c.expr)) == 6 {
		sched = sched.CronWithSeconds(c.expr)
	} else {
		sched = sched.Cron(c.expr)
	}

	_, err := sched.SingletonMode().Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}

		runs++
		c.logger.Info("scheduler: running cycle", "run", runs, "repetitions", c.repetitions, "cron", c.expr)
		if err := c.task(ctx); err != nil {
			finish(fmt.Errorf("run %d of %d: %w", runs, c.repetitions, err))
			return
		}
		if runs >= c.repetitions {
			finish(nil)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", c.expr, err)
	}

	c.scheduler.StartAsync()
	defer c.scheduler.Stop()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	finished = true
	if err == nil {
		c.logger.Info("scheduler: completed all repetitions", "runs", runs)
	}
	return runs, err
}
