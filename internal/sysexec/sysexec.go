// Package sysexec runs the Windows command-line tools the repair relies on
// (reg.exe, vssadmin, whoami) behind an interface tests can replace.
package sysexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExitError reports a command that could not be started or exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  []byte
	Err     error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(string(e.Output))
	if msg == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, msg)
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec. Output is captured rather than
// inherited, so tool chatter never reaches the console.
type ExecRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	hideWindow(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err == nil {
		return out.Bytes(), nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return out.Bytes(), &ExitError{
		Command: CommandLine(name, args...),
		Code:    code,
		Output:  out.Bytes(),
		Err:     err,
	}
}

// CommandLine renders name and args for logs, quoting arguments with spaces.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, s := range append([]string{name}, args...) {
		if s == "" || strings.ContainsAny(s, " \t") {
			s = `"` + s + `"`
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
