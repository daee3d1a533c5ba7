package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every now and then", zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnce_RunsAllJobs(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	s, err := New("@every 1h", zap.NewNop(),
		Job{Name: "first", Run: func(context.Context) error { order = append(order, "first"); return boom }},
		Job{Name: "second", Run: func(context.Context) error { order = append(order, "second"); return nil }},
	)
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "first")
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStart_RunsOnSchedule(t *testing.T) {
	var runs atomic.Int32
	s, err := New("@every 1s", zap.NewNop(), Job{Name: "count", Run: func(context.Context) error {
		runs.Add(1)
		return nil
	}})
	require.NoError(t, err)

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStop_CancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	done := make(chan error, 1)
	s, err := New("@every 1h", zap.NewNop(), Job{Name: "slow", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	require.NoError(t, err)

	go func() {
		s.tick()
		done <- nil
	}()
	<-started
	s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not cancelled")
	}
}

func TestStop_WaitsForRunningJob(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	s, err := New("@every 1h", zap.NewNop(), Job{Name: "cleanup", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		// Work that must complete before shutdown continues
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}})
	require.NoError(t, err)

	go s.tick()
	<-started
	s.Stop()
	assert.True(t, finished.Load())
}
