// Package artifacts persists job reports and captured output for a run.
package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
)

const (
	// RunDirectoryPrefix is the standardized prefix for run directories.
	RunDirectoryPrefix = "run-"
	// ManifestFilename lists every artifact stored for a run.
	ManifestFilename = "manifest.json"
	// LatestSymlink points at the most recently completed run directory.
	LatestSymlink = "latest"
	// RunLogFilename is the combined log that every job's output streams
	// into as jobs complete.
	RunLogFilename = "all.log"
)

// Record describes one stored artifact in the run manifest.
type Record struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"` // relative to the run directory
	Source   string    `json:"source"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}

// Store writes artifacts and job logs under a per-run directory:
//
//	<base>/run-<id>/artifacts/<name>
//	<base>/run-<id>/logs/<job>.log
//	<base>/run-<id>/failed/<job>.log
//	<base>/run-<id>/all.log
//	<base>/run-<id>/manifest.json
type Store struct {
	baseDir   string
	runDir    string
	runID     string
	mu        sync.Mutex
	records   []Record
	allLog    *AsyncFile
	completed bool
}

// NewStore creates the run directory layout for the given run ID.
func NewStore(baseDir, runID string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	runDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	dirs := []string{
		runDir,
		filepath.Join(runDir, "artifacts"),
		filepath.Join(runDir, "logs"),
		filepath.Join(runDir, "failed"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	allLog, err := NewAsyncFile(filepath.Join(runDir, RunLogFilename))
	if err != nil {
		return nil, err
	}

	return &Store{
		baseDir: baseDir,
		runDir:  runDir,
		runID:   runID,
		allLog:  allLog,
	}, nil
}

// RunID returns the run this store belongs to.
func (s *Store) RunID() string {
	return s.runID
}

// RunDir returns the absolute path of the run directory.
func (s *Store) RunDir() string {
	return s.runDir
}

// SaveArtifact copies the file at srcPath into the run's artifact directory
// under the given name and records it in the manifest. It fails if the source
// file is absent.
func (s *Store) SaveArtifact(name, srcPath string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("artifact source %s: %w", srcPath, err)
	}
	defer src.Close()

	destRel := filepath.Join("artifacts", name)
	destPath := filepath.Join(s.runDir, destRel)
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating artifact file: %w", err)
	}
	defer dest.Close()

	size, err := io.Copy(dest, src)
	if err != nil {
		return "", fmt.Errorf("copying artifact %s: %w", name, err)
	}

	s.mu.Lock()
	s.records = append(s.records, Record{
		Name:     name,
		Path:     destRel,
		Source:   srcPath,
		Size:     size,
		StoredAt: time.Now().UTC(),
	})
	s.mu.Unlock()

	return destPath, nil
}

// WriteJobLog persists a job's captured output, ANSI-stripped so the files
// are readable outside a terminal. The output also streams into the run's
// combined all.log via the async writer, and failed jobs get a second copy
// under failed/ for quick triage.
func (s *Store) WriteJobLog(jobID string, output string, failed bool) (string, error) {
	clean := stripansi.Strip(output)

	path := filepath.Join(s.runDir, "logs", jobID+".log")
	if err := os.WriteFile(path, []byte(clean), 0644); err != nil {
		return "", fmt.Errorf("writing job log: %w", err)
	}

	entry := fmt.Sprintf("==== job %s ====\n%s", jobID, clean)
	if !strings.HasSuffix(entry, "\n") {
		entry += "\n"
	}
	if err := s.allLog.Write([]byte(entry)); err != nil {
		return "", fmt.Errorf("appending to run log: %w", err)
	}

	if failed {
		failedPath := filepath.Join(s.runDir, "failed", jobID+".log")
		if err := os.WriteFile(failedPath, []byte(clean), 0644); err != nil {
			return "", fmt.Errorf("writing failed job log: %w", err)
		}
	}
	return path, nil
}

// WriteSummary stores the run summary file.
func (s *Store) WriteSummary(content string) error {
	path := filepath.Join(s.runDir, "summary.log")
	return os.WriteFile(path, []byte(content), 0644)
}

// Records returns a copy of the manifest records so far.
func (s *Store) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Complete flushes the run log, writes the manifest and repoints the latest
// symlink at this run. Safe to call once per store.
func (s *Store) Complete() error {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return nil
	}
	s.completed = true
	records := make([]Record, len(s.records))
	copy(records, s.records)
	s.mu.Unlock()

	if err := s.allLog.Close(); err != nil {
		return fmt.Errorf("closing run log: %w", err)
	}

	manifest, err := json.MarshalIndent(struct {
		RunID     string    `json:"run_id"`
		CreatedAt time.Time `json:"created_at"`
		Artifacts []Record  `json:"artifacts"`
	}{
		RunID:     s.runID,
		CreatedAt: time.Now().UTC(),
		Artifacts: records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.runDir, ManifestFilename), manifest, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return s.updateLatestSymlink()
}

// updateLatestSymlink repoints <base>/latest at this run directory.
func (s *Store) updateLatestSymlink() error {
	link := filepath.Join(s.baseDir, LatestSymlink)
	_ = os.Remove(link)
	if err := os.Symlink(filepath.Base(s.runDir), link); err != nil {
		// Symlinks are best-effort; some filesystems don't support them.
		return nil
	}
	return nil
}
