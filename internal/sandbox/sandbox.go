// Package sandbox runs model-written Python snippets in a separate
// process with a deny-list check and a hard timeout.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultTimeout bounds one script execution.
const DefaultTimeout = 10 * time.Second

// maxOutput caps combined stdout and stderr handed back to the model.
const maxOutput = 8000

// deniedCalls are os-module process controls the snippet may not use.
var deniedCalls = []string{
	"system", "popen", "spawn",
	"execl", "execle", "execlp", "execv", "execve", "execvp", "execvpe",
	"kill", "fork",
}

var (
	subprocessImportRe = regexp.MustCompile(`(?m)^\s*(import\s+subprocess\b|from\s+subprocess\s+import\b)`)
	osCallRe           = regexp.MustCompile(`\bos\s*\.\s*([A-Za-z_]+)\s*\(`)
)

// Runner executes Python snippets.
type Runner struct {
	python  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a sandbox runner. python is the interpreter
// command ("python3" if empty); timeout 0 uses DefaultTimeout.
func NewRunner(python string, timeout time.Duration, logger *slog.Logger) *Runner {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{python: python, timeout: timeout, logger: logger}
}

// CheckCode statically scans the snippet for denied operations and
// returns a violation description, or "" when the code passes.
func CheckCode(code string) string {
	var violations []string

	if loc := subprocessImportRe.FindStringIndex(code); loc != nil {
		line := 1 + strings.Count(code[:loc[0]], "\n")
		violations = append(violations,
			fmt.Sprintf("line %d: importing subprocess is not allowed", line))
	}

	for _, m := range osCallRe.FindAllStringSubmatchIndex(code, -1) {
		name := code[m[2]:m[3]]
		for _, denied := range deniedCalls {
			if name == denied {
				line := 1 + strings.Count(code[:m[0]], "\n")
				violations = append(violations,
					fmt.Sprintf("line %d: calling os.%s is not allowed", line, name))
				break
			}
		}
	}

	if len(violations) == 0 {
		return ""
	}
	return "Code failed the safety check:\n" + strings.Join(violations, "\n")
}

// Run executes the snippet and returns its combined stdout and stderr.
// Safety violations and timeouts are reported as ordinary output
// strings so the model can react to them.
func (r *Runner) Run(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("code is required")
	}
	if msg := CheckCode(code); msg != "" {
		return msg, nil
	}

	dir, err := os.MkdirTemp("", "aide-sandbox-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	script := filepath.Join(dir, "script.py")
	if err := os.WriteFile(script, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("write script: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.python, script)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	r.logger.Debug("sandbox execution finished",
		"elapsed", elapsed,
		"exit_error", err != nil,
	)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("Execution timed out after %s.", r.timeout), nil
	}

	out := combineOutput(stdout.String(), stderr.String())
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if out == "" {
				out = err.Error()
			}
			return fmt.Sprintf("Script exited with an error:\n%s", out), nil
		}
		return "", fmt.Errorf("run script: %w", err)
	}

	if out == "" {
		out = "(no output)"
	}
	return out, nil
}

func combineOutput(stdout, stderr string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(stdout))
	if s := strings.TrimSpace(stderr); s != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s)
	}
	out := b.String()
	if len(out) > maxOutput {
		out = out[:maxOutput] + "\n...(output truncated)..."
	}
	return out
}
