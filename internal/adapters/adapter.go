package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/models"
)

const metricsFileName = "metrics.json"
const inputsFileName = "job_inputs.json"

// backendSpec describes one simulation backend for the shared adapter.
type backendSpec struct {
	name         string
	envVar       string
	defaultCmd   string
	args         []string
	skeletonFile string
	skeletonBody string
	wslCapable   bool
	// shellDriver backends run their skeleton through bash/sh instead of
	// resolving the command itself (the CFD case driver).
	shellDriver bool
	parseLogs   func(string) map[string]float64
}

// backendAdapter is the shared implementation behind every registered
// backend. Run never returns a Go error; execution failures come back as
// failed results with the subprocess tails attached.
type backendAdapter struct {
	spec      backendSpec
	logger    arbor.ILogger
	tailBytes int
}

func newBackendAdapter(spec backendSpec, logger arbor.ILogger) *backendAdapter {
	return &backendAdapter{
		spec:      spec,
		logger:    logger,
		tailBytes: defaultTailBytes,
	}
}

func (a *backendAdapter) BackendName() string {
	return a.spec.name
}

// command returns the configured executable (or driver script) name.
func (a *backendAdapter) command() string {
	if a.spec.envVar != "" {
		if cmd := os.Getenv(a.spec.envVar); cmd != "" {
			return cmd
		}
	}
	return a.spec.defaultCmd
}

// CreateJob materializes the job directory. Re-creating an existing job
// rewrites the inputs file but leaves an existing skeleton untouched.
func (a *backendAdapter) CreateJob(jobID, workdir string, inputs map[string]interface{}) (*models.SimulationJob, error) {
	jobDir := filepath.Join(workdir, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}

	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	payload, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize inputs: %w", err)
	}
	if err := os.WriteFile(filepath.Join(jobDir, inputsFileName), payload, 0644); err != nil {
		return nil, fmt.Errorf("failed to write inputs file: %w", err)
	}

	if a.spec.skeletonFile != "" {
		skeleton := filepath.Join(jobDir, a.skeletonName())
		if _, err := os.Stat(skeleton); os.IsNotExist(err) {
			if err := os.WriteFile(skeleton, []byte(a.spec.skeletonBody), 0755); err != nil {
				return nil, fmt.Errorf("failed to write skeleton: %w", err)
			}
		}
	}

	return &models.SimulationJob{
		JobID:   jobID,
		Backend: a.spec.name,
		Workdir: jobDir,
		Inputs:  inputs,
	}, nil
}

// skeletonName resolves the skeleton file name; shell-driver backends let
// the env var rename the driver script.
func (a *backendAdapter) skeletonName() string {
	if a.spec.shellDriver {
		return a.command()
	}
	return a.spec.skeletonFile
}

// Run executes the backend, short-circuiting when metrics.json already
// exists in the job directory.
func (a *backendAdapter) Run(ctx context.Context, job *models.SimulationJob) *models.SimulationResult {
	metricsPath := filepath.Join(job.Workdir, metricsFileName)
	if fileExists(metricsPath) {
		return a.ParseResults(job)
	}

	outcome, failure := a.invoke(ctx, job)
	if failure != nil {
		return failure
	}

	var logs []string
	if outcome.stdout != "" {
		logs = append(logs, tail(outcome.stdout, a.tailBytes))
	}
	if outcome.stderr != "" {
		logs = append(logs, tail(outcome.stderr, a.tailBytes))
	}

	if outcome.exitCode != 0 {
		return &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  fmt.Sprintf("%s failed with code %d", a.spec.name, outcome.exitCode),
			Logs:   logs,
		}
	}

	if fileExists(metricsPath) {
		parsed := a.ParseResults(job)
		parsed.Logs = append(parsed.Logs, logs...)
		return parsed
	}

	if a.spec.parseLogs != nil {
		extracted := a.spec.parseLogs(strings.Join(logs, "\n"))
		if len(extracted) > 0 {
			if err := writeMetricsFile(metricsPath, extracted); err != nil {
				return &models.SimulationResult{
					JobID:  job.JobID,
					Status: models.JobStatusFailed,
					Error:  fmt.Sprintf("failed to write extracted metrics: %v", err),
					Logs:   logs,
				}
			}
			parsed := a.ParseResults(job)
			parsed.Logs = append(parsed.Logs, logs...)
			parsed.Logs = append(parsed.Logs, fmt.Sprintf("Auto-extracted metrics from %s logs", a.spec.name))
			return parsed
		}
	}

	return &models.SimulationResult{
		JobID:  job.JobID,
		Status: models.JobStatusFailed,
		Error:  fmt.Sprintf("%s completed but %s not found", a.spec.name, metricsFileName),
		Logs:   logs,
	}
}

// invoke resolves and runs the backend command, locally when the executable
// is on PATH, otherwise through the WSL bridge when the backend supports it.
func (a *backendAdapter) invoke(ctx context.Context, job *models.SimulationJob) (*runOutcome, *models.SimulationResult) {
	cmd := a.command()

	if a.spec.shellDriver {
		script := filepath.Join(job.Workdir, cmd)
		if !fileExists(script) {
			return nil, &models.SimulationResult{
				JobID:  job.JobID,
				Status: models.JobStatusFailed,
				Error:  fmt.Sprintf("%s not found", cmd),
			}
		}

		shell := firstOnPath("bash", "sh")
		if shell != "" {
			return a.exec(ctx, job, []string{shell, script})
		}
		if wsl, err := exec.LookPath("wsl"); err == nil && a.spec.wslCapable {
			return a.execWSL(ctx, job, wsl, "bash ./"+cmd)
		}
		return nil, &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  fmt.Sprintf("no bash/sh or wsl found for %s execution", a.spec.name),
			Logs:   []string{"Install WSL/Git Bash or provide a precomputed metrics.json"},
		}
	}

	if exe, err := exec.LookPath(cmd); err == nil {
		argv := append([]string{exe}, a.spec.args...)
		return a.exec(ctx, job, argv)
	}

	if a.spec.wslCapable {
		if wsl, err := exec.LookPath("wsl"); err == nil {
			cmdline := cmd
			if len(a.spec.args) > 0 {
				cmdline += " " + strings.Join(a.spec.args, " ")
			}
			return a.execWSL(ctx, job, wsl, cmdline)
		}
	}

	return nil, &models.SimulationResult{
		JobID:  job.JobID,
		Status: models.JobStatusFailed,
		Error:  fmt.Sprintf("%s executable not found: %s", a.spec.name, cmd),
		Logs:   []string{fmt.Sprintf("Set %s, install the backend, or install WSL", a.spec.envVar)},
	}
}

func (a *backendAdapter) exec(ctx context.Context, job *models.SimulationJob, argv []string) (*runOutcome, *models.SimulationResult) {
	outcome, err := runCommand(ctx, job.Workdir, argv)
	if err != nil {
		return nil, &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  err.Error(),
		}
	}
	return outcome, nil
}

func (a *backendAdapter) execWSL(ctx context.Context, job *models.SimulationJob, wslExe, cmdline string) (*runOutcome, *models.SimulationResult) {
	a.logger.Debug().Str("backend", a.spec.name).Str("cmdline", cmdline).Msg("Running via WSL bridge")
	outcome, err := runViaWSL(ctx, wslExe, job.Workdir, cmdline)
	if err != nil {
		return nil, &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  err.Error(),
		}
	}
	return outcome, nil
}

// ParseResults reads metrics.json from the job directory.
func (a *backendAdapter) ParseResults(job *models.SimulationJob) *models.SimulationResult {
	metricsPath := filepath.Join(job.Workdir, metricsFileName)
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &models.SimulationResult{
				JobID:  job.JobID,
				Status: models.JobStatusFailed,
				Error:  metricsFileName + " not found",
			}
		}
		return &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  fmt.Sprintf("failed to read %s: %v", metricsFileName, err),
		}
	}

	var payload struct {
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return &models.SimulationResult{
			JobID:  job.JobID,
			Status: models.JobStatusFailed,
			Error:  fmt.Sprintf("failed to parse %s: %v", metricsFileName, err),
		}
	}
	if payload.Metrics == nil {
		payload.Metrics = map[string]float64{}
	}

	return &models.SimulationResult{
		JobID:     job.JobID,
		Status:    models.JobStatusCompleted,
		Metrics:   payload.Metrics,
		Artifacts: map[string]string{"workdir": job.Workdir},
		Logs:      []string{fmt.Sprintf("Parsed %s %s", a.spec.name, metricsFileName)},
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstOnPath(names ...string) string {
	for _, name := range names {
		if exe, err := exec.LookPath(name); err == nil {
			return exe
		}
	}
	return ""
}

func writeMetricsFile(path string, metrics map[string]float64) error {
	payload, err := json.MarshalIndent(map[string]interface{}{"metrics": metrics}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0644)
}
