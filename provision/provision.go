// Package provision resolves requested interpreter versions to concrete
// executables available on the host.
package provision

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/mod/semver"
)

// Interpreter is a resolved interpreter binding for a job.
type Interpreter struct {
	Version string // version actually resolved, e.g. "3.7" or "3.7.10"
	Path    string // absolute path to the executable
}

// Locator finds interpreter executables by version. Resolution order: an
// exact `pythonX.Y` on PATH, then the best match from the configured tool
// directories.
type Locator struct {
	log      log.Logger
	toolDirs []string

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)
}

var versionPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// NewLocator creates a locator that searches PATH and the given directories.
func NewLocator(logger log.Logger, toolDirs []string) *Locator {
	if logger == nil {
		logger = log.New()
	}
	return &Locator{
		log:      logger,
		toolDirs: toolDirs,
		lookPath: exec.LookPath,
	}
}

// Resolve binds a requested version string to an executable. An unresolvable
// version is a provisioning failure for the requesting job.
func (l *Locator) Resolve(version string) (Interpreter, error) {
	if !versionPattern.MatchString(version) {
		return Interpreter{}, fmt.Errorf("invalid interpreter version %q", version)
	}

	if path, err := l.lookPath("python" + version); err == nil {
		l.log.Debug("Resolved interpreter from PATH", "version", version, "path", path)
		return Interpreter{Version: version, Path: path}, nil
	}

	if interp, ok := l.scanToolDirs(version); ok {
		return interp, nil
	}

	return Interpreter{}, fmt.Errorf("no interpreter found for version %s", version)
}

// scanToolDirs searches the tool directories for pythonX.Y[.Z] executables
// whose version matches the request, preferring the newest patch release.
func (l *Locator) scanToolDirs(version string) (Interpreter, bool) {
	var best Interpreter
	for _, dir := range l.toolDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			l.log.Debug("Skipping unreadable tool directory", "dir", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			candidate, ok := parseInterpreterName(entry.Name())
			if !ok || !versionMatches(version, candidate) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if !isExecutable(path) {
				continue
			}
			if best.Path == "" || semver.Compare(canonical(candidate), canonical(best.Version)) > 0 {
				best = Interpreter{Version: candidate, Path: path}
			}
		}
	}
	if best.Path == "" {
		return Interpreter{}, false
	}
	l.log.Debug("Resolved interpreter from tool dirs", "requested", version,
		"resolved", best.Version, "path", best.Path)
	return best, true
}

// parseInterpreterName extracts the version from names like "python3.7.10".
func parseInterpreterName(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, "python")
	if !ok {
		return "", false
	}
	if !versionPattern.MatchString(rest) {
		return "", false
	}
	return rest, true
}

// versionMatches reports whether candidate satisfies the requested version:
// an exact match, or the request is a major.minor prefix of the candidate.
func versionMatches(requested, candidate string) bool {
	if requested == candidate {
		return true
	}
	return strings.HasPrefix(candidate, requested+".")
}

// canonical maps "3.7.10" to the "v3.7.10" form semver.Compare expects.
func canonical(version string) string {
	return semver.Canonical("v" + version)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
