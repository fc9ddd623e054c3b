// Package script runs user scripts against the captured selection.
// Lua scripts run in an embedded sandboxed interpreter; anything else is
// executed as an external process.
package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dshills/selact/internal/logging"
	"github.com/dshills/selact/internal/rule"
)

// Runner errors.
var (
	ErrScriptNotFound = errors.New("script file not found")
)

// Call is one script invocation. SourceText is always appended as the
// final argument so scripts can ignore declared arguments entirely.
type Call struct {
	Path       string
	Arguments  []string
	SourceText string
}

// Runner executes a script call and renders its output.
type Runner interface {
	Run(ctx context.Context, call Call) (rule.ActionResult, error)
}

// ExecRunner resolves script paths against a scripts directory and runs
// them: .lua files through the embedded interpreter, everything else as
// an external process.
type ExecRunner struct {
	scriptsDir string
	timeout    time.Duration
	lua        *LuaRunner
	log        *logging.Logger
}

// NewExecRunner creates a runner. Relative script paths resolve against
// scriptsDir; timeout bounds a single run.
func NewExecRunner(scriptsDir string, timeout time.Duration, log *logging.Logger) *ExecRunner {
	if log == nil {
		log = logging.NullLogger
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExecRunner{
		scriptsDir: scriptsDir,
		timeout:    timeout,
		lua:        NewLuaRunner(),
		log:        log.WithComponent("script"),
	}
}

// Close shuts down the embedded interpreter.
func (r *ExecRunner) Close() {
	r.lua.Close()
}

// Run implements Runner. On success the result carries the script's
// output; a failed run returns an error whose message is the diagnostic
// shown to the user.
func (r *ExecRunner) Run(ctx context.Context, call Call) (rule.ActionResult, error) {
	path, err := r.resolve(call.Path)
	if err != nil {
		return rule.ActionResult{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := append(append([]string{}, call.Arguments...), call.SourceText)

	var out string
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		out, err = r.lua.RunFile(ctx, path, args, call.SourceText)
	} else {
		out, err = r.runProcess(ctx, path, args)
	}
	if err != nil {
		r.log.Warn("script %s failed: %v", call.Path, err)
		return rule.ActionResult{}, err
	}

	return rule.ActionResult{
		Text:       strings.TrimRight(out, "\n"),
		Kind:       string(rule.ActionScript),
		SourceText: call.SourceText,
	}, nil
}

// resolve expands a relative script path against the scripts directory.
func (r *ExecRunner) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrScriptNotFound)
	}
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		candidate := filepath.Join(r.scriptsDir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrScriptNotFound, path)
	}
	return path, nil
}

// runProcess executes the script as an external command. Stdout is the
// result; on a non-zero exit the stderr tail becomes the diagnostic.
func (r *ExecRunner) runProcess(ctx context.Context, path string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diag := strings.TrimSpace(stderr.String())
		if diag == "" {
			diag = err.Error()
		}
		return "", errors.New(diag)
	}
	return stdout.String(), nil
}
