package nm

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/muurk/wifisetup/internal/logging"
)

// Runner executes an external command and returns its stdout.
//
// A non-zero exit status is reported as *CommandError; a context deadline as
// *TimeoutError. Implementations must not invoke a shell.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	start := time.Now()

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	// nmcli output is parsed, so pin the locale
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")

	err := cmd.Run()
	stdout := strings.TrimSpace(stdoutBuf.String())
	stderr := strings.TrimSpace(stderrBuf.String())

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	redacted := Redact(args)
	logging.LogCommand(name, redacted, exitCode, time.Since(start))

	if ctx.Err() == context.DeadlineExceeded {
		return stdout, &TimeoutError{Command: name, Args: redacted}
	}
	if err != nil {
		return stdout, &CommandError{
			Command:  name,
			Args:     redacted,
			ExitCode: exitCode,
			Stdout:   stdout,
			Stderr:   stderr,
			Err:      err,
		}
	}
	return stdout, nil
}

// secretFlags are arguments whose following value must never be logged.
var secretFlags = map[string]bool{
	"password":     true,
	"wifi-sec.psk": true,
}

// Redact returns a copy of args with secret values replaced.
func Redact(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if secretFlags[out[i]] {
			out[i+1] = "******"
			i++
		}
	}
	return out
}
