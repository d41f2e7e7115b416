package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRetrainScheduler_RejectsInvalidSchedule(t *testing.T) {
	_, err := NewRetrainScheduler("every full moon", func(context.Context) error { return nil }, zap.NewNop())
	assert.ErrorContains(t, err, "invalid retrain schedule")
}

func TestRetrainScheduler_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int32
	scheduler, err := NewRetrainScheduler("@every 10ms", func(context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	scheduler.Start()
	defer scheduler.Stop()

	assert.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
