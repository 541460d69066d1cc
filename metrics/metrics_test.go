package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gbhanda/volttron-ci/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordJob(t *testing.T) {
	result := &types.JobResult{
		Spec: types.JobSpec{
			ID:     "dbutils-ubuntu-18.04-3.7",
			Matrix: types.MatrixEntry{OS: "ubuntu-18.04", PythonVersion: "3.7"},
		},
		Status:   types.JobStatusPass,
		Duration: time.Second,
	}
	RecordJob("run1", result)

	result.Status = types.JobStatusFail
	RecordJob("run1", result)

	// Invalid statuses are dropped without panicking
	result.Status = types.JobStatus("bogus")
	RecordJob("run1", result)
}

func TestRecordJob_Canceled(t *testing.T) {
	result := &types.JobResult{
		Spec: types.JobSpec{
			ID:     "dbutils-ubuntu-20.04-3.8",
			Matrix: types.MatrixEntry{OS: "ubuntu-20.04", PythonVersion: "3.8"},
		},
		Status: types.JobStatusCanceled,
	}

	before := testutil.ToFloat64(jobsTotal.WithLabelValues(
		"run-canceled", "ubuntu-20.04", "3.8", string(types.JobStatusCanceled)))
	RecordJob("run-canceled", result)
	after := testutil.ToFloat64(jobsTotal.WithLabelValues(
		"run-canceled", "ubuntu-20.04", "3.8", string(types.JobStatusCanceled)))

	if after != before+1 {
		t.Errorf("jobs_total{status=canceled} = %v, want %v", after, before+1)
	}
}

func TestRecordStepFailure(t *testing.T) {
	RecordStepFailure("checkout")
	RecordStepFailure("test")
}

func TestRecordRun(t *testing.T) {
	RecordRun("pytest-dbutils", "run1", "pass", 4, 4, 0, 0, time.Second)
	RecordRun("pytest-dbutils", "run1", "fail", 4, 2, 1, 1, time.Second)

	canceled := testutil.ToFloat64(runJobsCanceled.WithLabelValues("pytest-dbutils", "run1"))
	if canceled != 1 {
		t.Errorf("run_jobs_canceled = %v, want 1", canceled)
	}
}
