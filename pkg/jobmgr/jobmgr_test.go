package jobmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_WaitDrainsRunningJobs(t *testing.T) {
	var (
		mu      sync.Mutex
		reports []string
	)
	m := NewManager(func(s string) {
		mu.Lock()
		reports = append(reports, s)
		mu.Unlock()
	})

	release := make(chan struct{})
	name, err := m.Go(context.Background(), "interaction", func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "interaction#1", name)
	assert.Eventually(t, func() bool { return len(m.List()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "Running jobs: interaction#1", m.Status())

	close(release)
	require.NoError(t, m.Wait(context.Background()))
	assert.Empty(t, m.List())
	assert.Equal(t, "No jobs are running.", m.Status())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"running:interaction#1", "done:interaction#1"}, reports)
}

func TestManager_WaitTimeoutCancelsJobs(t *testing.T) {
	m := NewManager(nil)
	cancelled := make(chan struct{})
	_, err := m.Go(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		close(cancelled)
		return ctx.Err()
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
}

func TestManager_JobsOutliveParentCancellation(t *testing.T) {
	m := NewManager(nil)
	parent, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	_, err := m.Go(parent, "job", func(ctx context.Context) error {
		cancel()
		time.Sleep(5 * time.Millisecond)
		result <- ctx.Err()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, m.Wait(context.Background()))
	assert.NoError(t, <-result)
}

func TestManager_CloseRejectsNewJobs(t *testing.T) {
	m := NewManager(nil)
	m.Close()
	_, err := m.Go(context.Background(), "late", func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, ErrClosed))
	assert.NoError(t, m.Wait(context.Background()))
}

func TestManager_StopUnknownJob(t *testing.T) {
	m := NewManager(nil)
	assert.Error(t, m.Stop("nope"))
}
