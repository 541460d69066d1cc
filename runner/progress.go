package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/gbhanda/volttron-ci/types"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartRun(runID string, totalJobs int)
	StartJob(jobID string)
	UpdateJob(jobID string, status types.JobStatus)
	CompleteRun(runID string, status types.JobStatus)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(runID string, totalJobs int)          {}
func (n *noOpProgressIndicator) StartJob(jobID string)                         {}
func (n *noOpProgressIndicator) UpdateJob(jobID string, status types.JobStatus) {}
func (n *noOpProgressIndicator) CompleteRun(runID string, status types.JobStatus) {
}

// consoleProgressIndicator periodically logs how far the run has come and
// which jobs have been running the longest.
type consoleProgressIndicator struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	mu     sync.RWMutex

	runID         string
	completedJobs int
	totalJobs     int
	runStartTime  time.Time

	// Track currently running jobs
	runningJobs map[string]time.Time // job ID -> start time
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second // Default to 30 seconds
	}

	indicator := &consoleProgressIndicator{
		logger:      logger,
		ticker:      time.NewTicker(updateInterval),
		stopCh:      make(chan struct{}),
		runningJobs: make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *consoleProgressIndicator) StartRun(runID string, totalJobs int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runID = runID
	c.totalJobs = totalJobs
	c.completedJobs = 0
	c.runStartTime = time.Now()
	c.runningJobs = make(map[string]time.Time)

	c.logger.Info("Starting matrix run", "run_id", runID, "totalJobs", totalJobs)
}

func (c *consoleProgressIndicator) StartJob(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningJobs[jobID] = time.Now()
	c.logger.Debug("Job started", "job", jobID, "runningJobs", len(c.runningJobs))
}

func (c *consoleProgressIndicator) UpdateJob(jobID string, status types.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningJobs, jobID)
	c.completedJobs++

	c.logger.Debug("Job completed", "job", jobID, "status", status,
		"completed", c.completedJobs, "total", c.totalJobs)
}

func (c *consoleProgressIndicator) CompleteRun(runID string, status types.JobStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.runStartTime).Truncate(time.Second)
	c.logger.Info("Completed matrix run", "run_id", runID, "status", status,
		"totalJobs", c.totalJobs, "completed", c.completedJobs, "duration", duration)
	c.runningJobs = make(map[string]time.Time)
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *consoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.totalJobs == 0 {
		return
	}

	percentComplete := float64(c.completedJobs) * 100.0 / float64(c.totalJobs)

	c.logger.Info("Progress update",
		"run_id", c.runID,
		"completed", c.completedJobs,
		"total", c.totalJobs,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(c.runningJobs),
		"longestRunning", formatRunningJobs(c.runningJobs, 3))
}

// Stop stops the progress indicator
func (c *consoleProgressIndicator) Stop() {
	if c.ticker != nil {
		c.ticker.Stop()
	}
	close(c.stopCh)
}

// Helper function that formats running jobs into a display string
func formatRunningJobs(runningJobs map[string]time.Time, maxShow int) string {
	if len(runningJobs) == 0 {
		return ""
	}

	type runningJob struct {
		id       string
		duration time.Duration
	}

	var running []runningJob
	now := time.Now()
	for jobID, startTime := range runningJobs {
		running = append(running, runningJob{
			id:       jobID,
			duration: now.Sub(startTime),
		})
	}

	// Sort by duration (longest running first)
	sort.Slice(running, func(i, j int) bool {
		return running[i].duration > running[j].duration
	})

	var runningStrs []string
	for i, job := range running {
		if i >= maxShow {
			break
		}
		runningStrs = append(runningStrs, fmt.Sprintf("%s (%v)", job.id, job.duration.Truncate(time.Second)))
	}

	if len(running) > maxShow {
		runningStrs = append(runningStrs, fmt.Sprintf("+%d more", len(running)-maxShow))
	}

	return strings.Join(runningStrs, ", ")
}
