// Package jobmgr runs named jobs in their own goroutines and tracks them
// until they finish, so a process can drain running work before exit.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	_, err := jm.Go(ctx, "interaction", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// on shutdown
//	jm.Close()
//	_ = jm.Wait(drainCtx)
//
// Jobs are removed automatically on completion. There is no retry and no
// persistence.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrClosed is returned by Go after Close.
var ErrClosed = errors.New("job manager is closed")

// Job represents a running unit of work.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:interaction#12
//	error:interaction#12:handler failed
//	done:interaction#12
type StatusReporter func(string)

// Manager starts, cancels and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	seq      uint64
	closed   bool
	wg       sync.WaitGroup
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// Go runs runner in a new goroutine and returns the job's unique name
// (prefix plus a sequence number). The job's context keeps parent's values
// but not its cancellation: jobs end on their own, through Stop, or when
// Wait gives up.
func (m *Manager) Go(parent context.Context, prefix string, runner func(ctx context.Context) error) (string, error) {
	if parent == nil {
		parent = context.Background()
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	m.seq++
	name := fmt.Sprintf("%s#%d", prefix, m.seq)
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	m.jobs[name] = &Job{Name: name, Cancel: cancel}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.jobs, name)
		m.mu.Unlock()
	}()

	return name, nil
}

// Close stops the manager from accepting new jobs. Running jobs continue.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Wait blocks until every running job has returned. If ctx ends first, all
// remaining jobs are cancelled and ctx's error is returned.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.CancelAll()
		return ctx.Err()
	}
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job '%s' not running", name)
	}
	job.Cancel()
	return nil
}

// CancelAll cancels every running job.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		job.Cancel()
	}
}

// List returns the names of running jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	m.mu.Unlock()

	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of running jobs.
// Example:
//
//	"Running jobs: interaction#3, interaction#4"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
