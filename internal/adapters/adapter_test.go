package adapters

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/models"
)

func TestCreateJob_WritesInputsAndSkeleton(t *testing.T) {
	workdir := t.TempDir()
	adapter := NewCFDAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, map[string]interface{}{"mesh": "coarse"})
	require.NoError(t, err)
	assert.Equal(t, BackendCFD, job.Backend)
	assert.Equal(t, filepath.Join(workdir, "job-1"), job.Workdir)

	inputsData, err := os.ReadFile(filepath.Join(job.Workdir, "job_inputs.json"))
	require.NoError(t, err)
	var inputs map[string]interface{}
	require.NoError(t, json.Unmarshal(inputsData, &inputs))
	assert.Equal(t, "coarse", inputs["mesh"])

	script, err := os.ReadFile(filepath.Join(job.Workdir, "run.sh"))
	require.NoError(t, err)
	assert.Contains(t, string(script), "#!/bin/bash")
}

func TestCreateJob_PreservesEditedSkeleton(t *testing.T) {
	workdir := t.TempDir()
	adapter := NewCFDAdapter(arbor.NewLogger())

	_, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	// User-edited driver scripts survive job re-creation
	scriptPath := filepath.Join(workdir, "job-1", "run.sh")
	edited := "#!/bin/bash\necho customized\n"
	require.NoError(t, os.WriteFile(scriptPath, []byte(edited), 0755))

	_, err = adapter.CreateJob("job-1", workdir, map[string]interface{}{"rev": float64(2)})
	require.NoError(t, err)

	script, err := os.ReadFile(scriptPath)
	require.NoError(t, err)
	assert.Equal(t, edited, string(script))

	inputsData, err := os.ReadFile(filepath.Join(workdir, "job-1", "job_inputs.json"))
	require.NoError(t, err)
	var inputs map[string]interface{}
	require.NoError(t, json.Unmarshal(inputsData, &inputs))
	assert.Equal(t, float64(2), inputs["rev"])
}

func TestRun_ShortCircuitsOnExistingMetrics(t *testing.T) {
	workdir := t.TempDir()
	adapter := NewThermalAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	metricsPath := filepath.Join(job.Workdir, "metrics.json")
	require.NoError(t, os.WriteFile(metricsPath,
		[]byte(`{"metrics": {"max_temp": 341.5}}`), 0644))

	result := adapter.Run(context.Background(), job)

	assert.Equal(t, models.JobStatusCompleted, result.Status)
	assert.Equal(t, 341.5, result.Metrics["max_temp"])
	assert.Equal(t, job.Workdir, result.Artifacts["workdir"])
	assert.Contains(t, result.Logs, "Parsed thermal-solver metrics.json")
}

func TestRun_ExecutableNotFound(t *testing.T) {
	t.Setenv("THERMAL_CMD", "definitely-not-a-real-solver")

	workdir := t.TempDir()
	adapter := NewThermalAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	result := adapter.Run(context.Background(), job)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	assert.Equal(t, "thermal-solver executable not found: definitely-not-a-real-solver", result.Error)
}

func TestRun_ShellDriverAutoExtractsMetrics(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}

	workdir := t.TempDir()
	adapter := NewCFDAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	script := "#!/bin/bash\n" +
		"echo 'Time = 10'\n" +
		"echo 'Final residual = 2e-05'\n"
	require.NoError(t, os.WriteFile(filepath.Join(job.Workdir, "run.sh"), []byte(script), 0755))

	result := adapter.Run(context.Background(), job)

	require.Equal(t, models.JobStatusCompleted, result.Status, "error: %s", result.Error)
	assert.InDelta(t, 2e-05, result.Metrics["residual_final_last"], 1e-12)
	assert.InDelta(t, 10, result.Metrics["time_last"], 1e-9)
	assert.Contains(t, result.Logs, "Auto-extracted metrics from cfd-driver logs")

	// The extraction persists so re-runs short-circuit
	assert.FileExists(t, filepath.Join(job.Workdir, "metrics.json"))
}

func TestRun_ShellDriverNonZeroExit(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}

	workdir := t.TempDir()
	adapter := NewCFDAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	script := "#!/bin/bash\necho 'diverged' >&2\nexit 3\n"
	require.NoError(t, os.WriteFile(filepath.Join(job.Workdir, "run.sh"), []byte(script), 0755))

	result := adapter.Run(context.Background(), job)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	assert.Equal(t, "cfd-driver failed with code 3", result.Error)
	require.NotEmpty(t, result.Logs)
	assert.Contains(t, result.Logs[len(result.Logs)-1], "diverged")
}

func TestRun_CompletedWithoutMetrics(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}

	workdir := t.TempDir()
	adapter := NewCFDAdapter(arbor.NewLogger())

	job, err := adapter.CreateJob("job-1", workdir, nil)
	require.NoError(t, err)

	script := "#!/bin/bash\necho 'nothing parseable here'\n"
	require.NoError(t, os.WriteFile(filepath.Join(job.Workdir, "run.sh"), []byte(script), 0755))

	result := adapter.Run(context.Background(), job)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	assert.Equal(t, "cfd-driver completed but metrics.json not found", result.Error)
}

func TestParseResults_MissingMetrics(t *testing.T) {
	adapter := NewDFTAdapter(arbor.NewLogger())
	job := &models.SimulationJob{JobID: "job-1", Backend: BackendDFT, Workdir: t.TempDir()}

	result := adapter.ParseResults(job)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	assert.Equal(t, "metrics.json not found", result.Error)
}

func TestParseResults_MalformedMetrics(t *testing.T) {
	workdir := t.TempDir()
	adapter := NewDFTAdapter(arbor.NewLogger())
	job := &models.SimulationJob{JobID: "job-1", Backend: BackendDFT, Workdir: workdir}

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "metrics.json"), []byte("{not json"), 0644))

	result := adapter.ParseResults(job)

	assert.Equal(t, models.JobStatusFailed, result.Status)
	assert.Contains(t, result.Error, "failed to parse metrics.json")
}

func TestRegistryContainsAllBackends(t *testing.T) {
	registry := NewRegistry(arbor.NewLogger())

	for _, name := range []string{BackendCFD, BackendMD, BackendRANS, BackendThermal, BackendDFT} {
		assert.Contains(t, registry, name)
	}
	assert.Len(t, registry, 5)
}
