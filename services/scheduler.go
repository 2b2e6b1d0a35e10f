// services/scheduler.go - Cron trigger for the pending prize sweep
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PrizeScheduler runs Prizes.AwardPending on a cron schedule in the challenge zone
type PrizeScheduler struct {
	cron    *cron.Cron
	prizes  *Prizes
	timeout time.Duration
	logger  *zap.Logger
}

func NewPrizeScheduler(prizes *Prizes, cal *Calendar, spec string, logger *zap.Logger) (*PrizeScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PrizeScheduler{
		cron:    cron.New(cron.WithLocation(cal.Location())),
		prizes:  prizes,
		timeout: 5 * time.Minute,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid prize schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *PrizeScheduler) Start() {
	s.cron.Start()
	s.logger.Info("Prize scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for a running sweep to finish
func (s *PrizeScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one sweep
func (s *PrizeScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.prizes.AwardPending(ctx)
	if err != nil {
		s.logger.Error("Scheduled prize sweep failed", zap.Error(err))
		return
	}
	for _, f := range report.Failures {
		s.logger.Error("Scheduled award failed", zap.Uint("challenge_id", f.ChallengeID), zap.String("error", f.Error))
	}
}
