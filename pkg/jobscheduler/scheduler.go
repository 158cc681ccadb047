package jobscheduler

import (
	"context"
	"sync"

	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type JobFunc func()

type Scheduler interface {
	Add(spec string, job JobFunc) (id cron.EntryID, err error)
	Remove(id cron.EntryID)
	Start()
	Stop()
	List() []cron.Entry
}

// ScriptRunner executes a G-code script, e.g. *gcode.Dispatcher.
type ScriptRunner interface {
	Run(ctx context.Context, script string) error
}

type memoryScheduler struct {
	c  *cron.Cron
	mu sync.RWMutex
}

// NewMemoryScheduler returns a scheduler that skips a run while the previous
// run of the same entry is still in progress.
func NewMemoryScheduler() Scheduler {
	return &memoryScheduler{
		c: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

func (s *memoryScheduler) Add(spec string, job JobFunc) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.AddFunc(spec, job)
}

func (s *memoryScheduler) Remove(id cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Remove(id)
}

func (s *memoryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Start()
}

// Stop waits for running jobs to return.
func (s *memoryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := s.c.Stop()
	<-ctx.Done()
}

func (s *memoryScheduler) List() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.c.Entries()
}

// ScriptJob runs script on runner. Failures are logged; the runner has
// already reported them on its console.
func ScriptJob(ctx context.Context, runner ScriptRunner, script string, logger *logs.Logger) JobFunc {
	if logger == nil {
		logger = logs.GetLogger()
	}
	return func() {
		if err := runner.Run(ctx, script); err != nil {
			logger.Warn(ctx, "scheduled script failed", zap.String("script", script), zap.Error(err))
			return
		}
		logger.Debug(ctx, "scheduled script ran", zap.String("script", script))
	}
}
