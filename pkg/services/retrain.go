package services

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetrainFunc rebuilds the classifier model and QA registry from the
// current template store and swaps them in atomically.
type RetrainFunc func(ctx context.Context) error

// RetrainScheduler runs periodic retraining. Retraining never mutates the
// live model; it builds a replacement and swaps a single reference, so
// inference keeps running throughout.
type RetrainScheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewRetrainScheduler schedules retrain on the given cron expression.
func NewRetrainScheduler(schedule string, retrain RetrainFunc, logger *zap.Logger) (*RetrainScheduler, error) {
	log := logger.Named("retrain-scheduler")

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		log.Info("Starting scheduled retrain")
		if err := retrain(context.Background()); err != nil {
			log.Error("Scheduled retrain failed", zap.Error(err))
			return
		}
		log.Info("Scheduled retrain complete")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", schedule, err)
	}

	return &RetrainScheduler{cron: c, logger: log}, nil
}

// Start begins running the schedule in its own goroutine.
func (s *RetrainScheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running retrain to finish.
func (s *RetrainScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
