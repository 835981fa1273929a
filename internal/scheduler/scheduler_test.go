package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := New("not a cron", time.UTC, func(context.Context) error { return nil }, nil)
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron spec")
	assert.False(t, s.IsRunning())
}

func TestStartRequiresJob(t *testing.T) {
	s := New("0 21 * * *", time.UTC, nil, nil)
	require.Error(t, s.Start())
}

func TestNextActivation(t *testing.T) {
	s := New("0 21 * * *", time.UTC, func(context.Context) error { return nil }, nil)
	assert.True(t, s.Next().IsZero())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	next := s.Next().UTC()
	assert.Equal(t, 21, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestRunPassesContextAndSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	s := New("@every 1h", time.UTC, func(ctx context.Context) error {
		calls.Add(1)
		require.NoError(t, ctx.Err())
		return errors.New("boom")
	}, nil)

	s.run()
	s.run()
	assert.Equal(t, int32(2), calls.Load())
}

func TestStopCancelsJobContext(t *testing.T) {
	var seen error
	s := New("@every 1h", time.UTC, func(ctx context.Context) error {
		seen = ctx.Err()
		return seen
	}, nil)
	s.Stop()
	s.run()
	assert.ErrorIs(t, seen, context.Canceled)
}
