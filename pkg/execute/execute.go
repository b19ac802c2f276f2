// pkg/execute/execute.go

// Package execute provides command execution with structured logging,
// bounded timeouts, and captured output. Shell execution is not supported;
// arguments are always passed as a vector.
package execute

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/serverforge/n8nctl/pkg/n8nctl_err"
	cerr "github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Options controls a single command invocation.
type Options struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration // 0 means DefaultTimeout
	Retries int           // 0 or 1 means a single attempt
	Delay   time.Duration // pause between retry attempts
	Capture bool          // return combined output to the caller
	Logger  *zap.Logger
}

// DefaultTimeout bounds commands whose Options carry none.
const DefaultTimeout = 3 * time.Minute

// Run executes a command with structured logging and proper error handling.
func Run(ctx context.Context, opts Options) (string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cmdStr := opts.Command + " " + strings.Join(opts.Args, " ")
	attempts := opts.Retries
	if attempts < 1 {
		attempts = 1
	}

	var output string
	var err error

	for i := 1; i <= attempts; i++ {
		runCtx, cancel := context.WithTimeout(ctx, defaultTimeout(opts.Timeout))

		cmd := exec.CommandContext(runCtx, opts.Command, opts.Args...)
		if opts.Dir != "" {
			cmd.Dir = opts.Dir
		}

		var buf bytes.Buffer
		cmd.Stdout = &buf
		cmd.Stderr = &buf

		err = cmd.Run()
		cancel()
		output = buf.String()

		if err == nil {
			log.Debug("Execution succeeded", zap.String("command", cmdStr))
			break
		}

		summary := n8nctl_err.ExtractSummary(output, 2)
		log.Error("Execution failed",
			zap.Int("attempt", i),
			zap.String("command", cmdStr),
			zap.String("summary", summary),
			zap.Error(err),
		)

		if i < attempts {
			time.Sleep(opts.Delay)
		}
	}

	if err != nil {
		return output, cerr.Wrapf(err, "command %q failed after %d attempt(s)", cmdStr, attempts)
	}

	if opts.Capture {
		return output, nil
	}
	return "", nil
}

// RunSimple executes a command with default options.
func RunSimple(ctx context.Context, cmd string, args ...string) error {
	_, err := Run(ctx, Options{Command: cmd, Args: args})
	return err
}

// Capture executes a command and returns its combined output.
func Capture(ctx context.Context, cmd string, args ...string) (string, error) {
	return Run(ctx, Options{Command: cmd, Args: args, Capture: true})
}

func defaultTimeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return DefaultTimeout
}
