package lintai

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
)

// outputTailBytes bounds how much combined output is kept for diagnostics.
const outputTailBytes = 8 * 1024

// Runner invokes the lintai CLI as an external process. The tool is a
// black box: given a target path and an output location it writes a
// report file, or exits nonzero.
type Runner struct {
	binary string
}

func NewRunner(binary string) *Runner {
	if binary == "" {
		binary = "lintai"
	}
	return &Runner{binary: binary}
}

func (r *Runner) Run(ctx context.Context, inv domain.Invocation) (domain.ExecResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, r.binary, buildArgs(inv)...)
	out, err := cmd.CombinedOutput()
	duration := time.Since(start).Milliseconds()

	exitCode := 0
	if err != nil {
		// ambil exit code
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		} else {
			return domain.ExecResult{ExitCode: -1, DurationMS: duration},
				fmt.Errorf("launch %s: %w", r.binary, err)
		}
	}

	return domain.ExecResult{
		ExitCode:   exitCode,
		Output:     tail(out),
		DurationMS: duration,
	}, nil
}

// buildArgs assembles the CLI invocation: positional target, output path,
// depth and log level, plus the optional ruleset and env file flags.
func buildArgs(inv domain.Invocation) []string {
	var args []string
	switch inv.Type {
	case domain.TypeInventory:
		args = []string{"ai-inventory", inv.Target, "--graph", "--output", inv.OutputPath}
	default:
		args = []string{"scan", inv.Target, "--output", inv.OutputPath}
	}
	args = append(args,
		"--ai-call-depth", strconv.Itoa(inv.Depth),
		"--log-level", inv.LogLevel,
	)
	if inv.Ruleset != "" {
		args = append(args, "--ruleset", inv.Ruleset)
	}
	if inv.EnvFile != "" {
		args = append(args, "--env-file", inv.EnvFile)
	}
	return args
}

func tail(out []byte) []byte {
	if len(out) <= outputTailBytes {
		return out
	}
	return out[len(out)-outputTailBytes:]
}
