package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	store, err := NewStore(base, "test-run")
	require.NoError(t, err)
	return store, base
}

func TestNewStore_CreatesLayout(t *testing.T) {
	store, base := newTestStore(t)

	assert.Equal(t, "test-run", store.RunID())
	runDir := filepath.Join(base, "run-test-run")
	assert.Equal(t, runDir, store.RunDir())
	for _, dir := range []string{"artifacts", "logs", "failed"} {
		info, err := os.Stat(filepath.Join(runDir, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.FileExists(t, filepath.Join(runDir, RunLogFilename))
}

func TestNewStore_RequiresIDs(t *testing.T) {
	_, err := NewStore("", "run")
	require.Error(t, err)
	_, err = NewStore(t.TempDir(), "")
	require.Error(t, err)
}

func TestSaveArtifact(t *testing.T) {
	store, _ := newTestStore(t)

	src := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, os.WriteFile(src, []byte("<testsuite/>"), 0644))

	dest, err := store.SaveArtifact("pytest-report-ubuntu-18.04-3.7", src)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "<testsuite/>", string(data))

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "pytest-report-ubuntu-18.04-3.7", records[0].Name)
	assert.Equal(t, int64(len("<testsuite/>")), records[0].Size)
}

func TestSaveArtifact_MissingSource(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.SaveArtifact("pytest-report", filepath.Join(t.TempDir(), "absent.xml"))
	require.Error(t, err)
	assert.Empty(t, store.Records())
}

func TestWriteJobLog_StripsANSI(t *testing.T) {
	store, _ := newTestStore(t)

	path, err := store.WriteJobLog("dbutils-ubuntu-18.04-3.7", "\x1b[31mFAILED\x1b[0m test_store", true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "FAILED test_store", string(data))

	// Failed jobs get a copy under failed/ as well.
	failedCopy := filepath.Join(store.RunDir(), "failed", "dbutils-ubuntu-18.04-3.7.log")
	data, err = os.ReadFile(failedCopy)
	require.NoError(t, err)
	assert.Equal(t, "FAILED test_store", string(data))
}

func TestWriteJobLog_PassedJobHasNoFailedCopy(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.WriteJobLog("job-a", "all good", false)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(store.RunDir(), "failed", "job-a.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJobLog_StreamsIntoRunLog(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.WriteJobLog("job-a", "collected 3 items\n3 passed\n", false)
	require.NoError(t, err)
	_, err = store.WriteJobLog("job-b", "1 failed", true)
	require.NoError(t, err)

	// Complete flushes the async writer before the manifest is written.
	require.NoError(t, store.Complete())

	data, err := os.ReadFile(filepath.Join(store.RunDir(), RunLogFilename))
	require.NoError(t, err)
	combined := string(data)
	assert.Contains(t, combined, "==== job job-a ====\ncollected 3 items\n3 passed\n")
	assert.Contains(t, combined, "==== job job-b ====\n1 failed\n")

	// Writes after Complete are rejected instead of racing the close.
	_, err = store.WriteJobLog("job-c", "late", false)
	require.Error(t, err)
}

func TestComplete_WritesManifestAndLatest(t *testing.T) {
	store, base := newTestStore(t)

	src := filepath.Join(t.TempDir(), "results.xml")
	require.NoError(t, os.WriteFile(src, []byte("<testsuite/>"), 0644))
	_, err := store.SaveArtifact("pytest-report", src)
	require.NoError(t, err)

	require.NoError(t, store.Complete())
	// Complete is idempotent.
	require.NoError(t, store.Complete())

	data, err := os.ReadFile(filepath.Join(store.RunDir(), ManifestFilename))
	require.NoError(t, err)

	var manifest struct {
		RunID     string   `json:"run_id"`
		Artifacts []Record `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "test-run", manifest.RunID)
	require.Len(t, manifest.Artifacts, 1)
	assert.Equal(t, "pytest-report", manifest.Artifacts[0].Name)

	target, err := os.Readlink(filepath.Join(base, LatestSymlink))
	if err == nil {
		assert.Equal(t, "run-test-run", target)
	}
}

func TestAsyncFile_WriteAfterClose(t *testing.T) {
	af, err := NewAsyncFile(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	require.NoError(t, af.Write([]byte("data")))
	require.NoError(t, af.Close())

	err = af.Write([]byte("late"))
	require.Error(t, err)
}
