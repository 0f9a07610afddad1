package ratelimit

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultSweepSpec is the cron schedule used to purge expired entries.
const DefaultSweepSpec = "@every 5m"

// Sweeper periodically purges expired entries from in-memory stores.
type Sweeper struct {
	cron    *cron.Cron
	targets []Sweepable
	logger  *zap.SugaredLogger
}

func NewSweeper(spec string, logger *zap.SugaredLogger, targets ...Sweepable) (*Sweeper, error) {
	s := &Sweeper{cron: cron.New(), targets: targets, logger: logger}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(time.Now()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// RunOnce sweeps every target and returns the number of entries removed.
func (s *Sweeper) RunOnce(now time.Time) int {
	total := 0
	for _, t := range s.targets {
		if t == nil {
			continue
		}
		total += t.Sweep(now)
	}
	if total > 0 && s.logger != nil {
		s.logger.Debugw("swept expired entries", "removed", total)
	}
	return total
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
