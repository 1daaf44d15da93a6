// Package execx runs the external tools stackdoc drives (cargo, rustdoc).
//
// Output of a tool is suppressed by default and only the tail of its stderr
// is attached to the returned error. With Verbose set, stdout and stderr are
// streamed to the configured writers instead.
package execx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// stderrTail is how much of a failed command's stderr is kept in the error.
const stderrTail = 4096

// Command describes one tool invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  map[string]string // merged over the process environment
}

// String renders the command line for logs.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands synchronously.
// The zero value is usable and suppresses all tool output.
type Runner struct {
	Verbose bool
	Stdout  io.Writer // defaults to os.Stdout when Verbose
	Stderr  io.Writer // defaults to os.Stderr when Verbose
	Logger  *log.Logger
}

// ExitError is returned when a command runs but exits unsuccessfully.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += "\n" + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Run executes c, discarding stdout unless Verbose.
func (r *Runner) Run(ctx context.Context, c Command) error {
	_, err := r.exec(ctx, c, false)
	return err
}

// Output executes c and returns its stdout. Stderr is handled as in Run.
func (r *Runner) Output(ctx context.Context, c Command) ([]byte, error) {
	return r.exec(ctx, c, true)
}

func (r *Runner) exec(ctx context.Context, c Command, capture bool) ([]byte, error) {
	if r.Logger != nil {
		r.Logger.Debug("exec", "cmd", c.String(), "dir", c.Dir)
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(c.Env)...)
	}

	var stdout, stderr bytes.Buffer
	switch {
	case capture:
		cmd.Stdout = &stdout
	case r.Verbose:
		cmd.Stdout = r.stdout()
	}
	if r.Verbose {
		cmd.Stderr = io.MultiWriter(r.stderr(), &tailWriter{buf: &stderr})
	} else {
		cmd.Stderr = &tailWriter{buf: &stderr}
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		exitErr := &ExitError{Command: c.String(), ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		if ee, ok := err.(*exec.ExitError); ok {
			exitErr.ExitCode = ee.ExitCode()
		}
		return nil, exitErr
	}
	return stdout.Bytes(), nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// envList renders env sorted by key so command lines are reproducible.
func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// tailWriter keeps only the last stderrTail bytes written to it.
type tailWriter struct {
	buf *bytes.Buffer
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if over := w.buf.Len() - stderrTail; over > 0 {
		w.buf.Next(over)
	}
	return len(p), nil
}
