package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of background work run on a fixed interval, such as the
// reservation expiry sweep or the checkout reconciliation scan
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single run; zero means Interval
	Timeout time.Duration
	// RunOnStart runs the job once immediately instead of waiting a full interval
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// JobStats is a snapshot of a job's run history
type JobStats struct {
	Runs      int64
	Failures  int64
	LastRun   time.Time
	LastError string
}

type jobState struct {
	job     Job
	mu      sync.Mutex
	running bool
	stats   JobStats
}

// PeriodicScheduler runs registered jobs on their intervals until stopped.
// A job never overlaps itself; a tick that arrives while it still runs is skipped.
type PeriodicScheduler struct {
	logger    *zap.Logger
	jobs      map[string]*jobState
	order     []string
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPeriodicScheduler creates an empty scheduler
func NewPeriodicScheduler(logger *zap.Logger) *PeriodicScheduler {
	return &PeriodicScheduler{
		logger: logger,
		jobs:   make(map[string]*jobState),
	}
}

// Register adds a job. It must be called before Start.
func (s *PeriodicScheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("%w: job needs a name, a run func and a positive interval", ErrInvalidConfig)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("%w: job %q registered twice", ErrInvalidConfig, job.Name)
	}
	if job.Timeout <= 0 {
		job.Timeout = job.Interval
	}
	s.jobs[job.Name] = &jobState{job: job}
	s.order = append(s.order, job.Name)
	return nil
}

// Start launches one loop per registered job
func (s *PeriodicScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.runCtx, s.cancel = ctx, cancel
	for _, name := range s.order {
		st := s.jobs[name]
		s.wg.Add(1)
		go s.loop(ctx, st)
		s.logger.Info("Background job scheduled",
			zap.String("job", name),
			zap.Duration("interval", st.job.Interval),
		)
	}
	return nil
}

// Stop cancels the loops and waits for in-flight runs until ctx is done
func (s *PeriodicScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Background jobs stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Background jobs stop timed out")
		return ctx.Err()
	}
}

// TriggerNow runs a job once outside its schedule. The run is bound to the
// scheduler's lifetime, not to the caller, and is skipped like a tick when
// the job is already running.
func (s *PeriodicScheduler) TriggerNow(name string) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	st, ok := s.jobs[name]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	ctx := s.runCtx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.execute(ctx, st)
	}()
	return nil
}

// Stats returns a job's run history
func (s *PeriodicScheduler) Stats(name string) (JobStats, bool) {
	s.mu.Lock()
	st, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return JobStats{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.stats, true
}

// Snapshot returns the run history of every job, keyed by name
func (s *PeriodicScheduler) Snapshot() map[string]JobStats {
	s.mu.Lock()
	states := make([]*jobState, 0, len(s.order))
	for _, name := range s.order {
		states = append(states, s.jobs[name])
	}
	s.mu.Unlock()

	out := make(map[string]JobStats, len(states))
	for _, st := range states {
		st.mu.Lock()
		out[st.job.Name] = st.stats
		st.mu.Unlock()
	}
	return out
}

// IsRunning returns whether the scheduler is running
func (s *PeriodicScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *PeriodicScheduler) loop(ctx context.Context, st *jobState) {
	defer s.wg.Done()

	if st.job.RunOnStart {
		s.execute(ctx, st)
	}
	ticker := time.NewTicker(st.job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Background job loop stopping", zap.String("job", st.job.Name))
			return
		case <-ticker.C:
			s.execute(ctx, st)
		}
	}
}

func (s *PeriodicScheduler) execute(ctx context.Context, st *jobState) {
	st.mu.Lock()
	if st.running {
		st.mu.Unlock()
		s.logger.Debug("Background job still running, tick skipped", zap.String("job", st.job.Name))
		return
	}
	st.running = true
	st.mu.Unlock()

	runCtx, cancel := context.WithTimeout(ctx, st.job.Timeout)
	defer cancel()

	started := time.Now()
	err := s.safeRun(runCtx, st.job)
	elapsed := time.Since(started)

	st.mu.Lock()
	st.running = false
	st.stats.Runs++
	st.stats.LastRun = started
	st.stats.LastError = ""
	if err != nil {
		st.stats.Failures++
		st.stats.LastError = err.Error()
	}
	st.mu.Unlock()

	if err != nil {
		s.logger.Error("Background job failed",
			zap.String("job", st.job.Name),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Background job completed",
		zap.String("job", st.job.Name),
		zap.Duration("duration", elapsed),
	)
}

func (s *PeriodicScheduler) safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
