package vci

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// RunScheduler decides when the workflow callback fires: exactly once, or
// immediately and then on a fixed interval until stopped.
type RunScheduler interface {
	Start(ctx context.Context) error
	Stop() error
	RegisterCallback(func() error)
	WaitForShutdown(ctx context.Context) error
	Stopped() bool
}

// DefaultRunScheduler implements the RunScheduler interface.
type DefaultRunScheduler struct {
	interval time.Duration
	runOnce  bool
	logger   log.Logger
	callback func() error

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewDefaultRunScheduler creates a new DefaultRunScheduler.
func NewDefaultRunScheduler(interval time.Duration, runOnce bool, logger log.Logger) *DefaultRunScheduler {
	return &DefaultRunScheduler{
		interval: interval,
		runOnce:  runOnce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// RegisterCallback sets the function invoked for each scheduled run. Must be
// called before Start.
func (s *DefaultRunScheduler) RegisterCallback(callback func() error) {
	s.callback = callback
}

// Start kicks off the first run. In run-once mode the callback's error is the
// scheduler's error; in interval mode only the initial run can fail Start,
// later runs just log.
func (s *DefaultRunScheduler) Start(ctx context.Context) error {
	if s.callback == nil {
		return errors.New("callback must be registered before starting scheduler")
	}

	s.done = make(chan struct{})
	s.running.Store(true)

	if s.runOnce {
		s.logger.Info("Scheduler executing a single workflow run")
		return s.callback()
	}

	s.logger.Info("Scheduler executing workflow on an interval", "interval", s.interval)

	if err := s.callback(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case <-time.After(s.interval):
				if !s.running.Load() {
					return
				}
				s.logger.Info("Interval elapsed, executing workflow")
				if err := s.callback(); err != nil {
					s.logger.Error("Scheduled workflow run failed", "error", err)
				}

			case <-s.done:
				s.logger.Debug("Scheduler stop requested")
				return

			case <-ctx.Done():
				s.logger.Debug("Scheduler context canceled")
				s.running.Store(false)
				return
			}
		}
	}()

	return nil
}

// Stop prevents further scheduled runs. A run already in flight finishes.
func (s *DefaultRunScheduler) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.running.Store(false)
	close(s.done)
	return nil
}

// Stopped reports whether the scheduler has been stopped.
func (s *DefaultRunScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until the interval goroutine exits or the context
// expires.
func (s *DefaultRunScheduler) WaitForShutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		s.logger.Warn("Gave up waiting for scheduler shutdown", "error", ctx.Err())
		return ctx.Err()
	}
}
