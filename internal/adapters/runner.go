package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// defaultTailBytes bounds how much of each stream is kept in result logs.
const defaultTailBytes = 4096

// defaultWSLDistro is used when COGSIM_WSL_DISTRO is unset.
const defaultWSLDistro = "Ubuntu"

// runOutcome carries the captured streams and exit code of one invocation.
type runOutcome struct {
	stdout   string
	stderr   string
	exitCode int
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// wslPath translates a Windows-style path ("X:/dir/sub") to its WSL mount
// ("/mnt/x/dir/sub"). Paths without a drive prefix pass through unchanged.
func wslPath(p string) string {
	norm := strings.ReplaceAll(p, `\`, "/")
	if len(norm) >= 2 && norm[1] == ':' {
		drive := strings.ToLower(norm[:1])
		return "/mnt/" + drive + norm[2:]
	}
	return norm
}

// wslDistro returns the configured WSL distribution name.
func wslDistro() string {
	if d := os.Getenv("COGSIM_WSL_DISTRO"); d != "" {
		return d
	}
	return defaultWSLDistro
}

// runCommand executes argv in dir, capturing both streams.
func runCommand(ctx context.Context, dir string, argv []string) (*runOutcome, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome := &runOutcome{
		stdout: stdout.String(),
		stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.exitCode = exitErr.ExitCode()
			return outcome, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return outcome, nil
}

// runViaWSL executes cmdline inside the configured WSL distribution with the
// job directory translated to its /mnt path.
func runViaWSL(ctx context.Context, wslExe, dir, cmdline string) (*runOutcome, error) {
	full := fmt.Sprintf("cd '%s' && %s", wslPath(dir), cmdline)
	return runCommand(ctx, dir, []string{wslExe, "-d", wslDistro(), "bash", "-lc", full})
}
