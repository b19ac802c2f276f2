// pkg/docker/compose.go

package docker

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/serverforge/n8nctl/pkg/execute"
	cerr "github.com/cockroachdb/errors"
)

// ComposeFileName is the descriptor file n8nctl owns inside an install dir.
const ComposeFileName = "docker-compose.yml"

// ComposeRunner abstracts compose lifecycle operations over an install
// directory so deployment logic can be tested without a container runtime.
type ComposeRunner interface {
	Up(ctx context.Context, dir string) error
	Down(ctx context.Context, dir string) error
	Ps(ctx context.Context, dir string) (string, error)
}

// CLIRunner drives compose through the docker CLI, preferring the compose
// plugin and falling back to the standalone docker-compose binary.
type CLIRunner struct {
	Timeout time.Duration
}

// NewCLIRunner returns a runner with the default compose timeout.
func NewCLIRunner() *CLIRunner {
	return &CLIRunner{Timeout: 5 * time.Minute}
}

func (r *CLIRunner) Up(ctx context.Context, dir string) error {
	return r.run(ctx, dir, "up", "-d")
}

// Down stops and removes services. Volumes are intentionally kept; data
// removal is the operator's call, not ours.
func (r *CLIRunner) Down(ctx context.Context, dir string) error {
	return r.run(ctx, dir, "down")
}

func (r *CLIRunner) Ps(ctx context.Context, dir string) (string, error) {
	name, args, err := composeCommand(dir, "ps")
	if err != nil {
		return "", err
	}
	return execute.Run(ctx, execute.Options{
		Command: name,
		Args:    args,
		Timeout: r.Timeout,
		Capture: true,
	})
}

func (r *CLIRunner) run(ctx context.Context, dir string, verb ...string) error {
	name, args, err := composeCommand(dir, verb...)
	if err != nil {
		return err
	}
	_, err = execute.Run(ctx, execute.Options{
		Command: name,
		Args:    args,
		Timeout: r.Timeout,
	})
	return cerr.Wrapf(err, "docker compose %s in %s", verb[0], dir)
}

// composeCommand builds the CLI invocation for a compose verb against the
// descriptor in dir.
func composeCommand(dir string, verb ...string) (string, []string, error) {
	composePath := filepath.Join(dir, ComposeFileName)
	if _, err := os.Stat(composePath); err != nil {
		return "", nil, cerr.Wrapf(err, "compose descriptor not found at %s", composePath)
	}

	base := []string{"-f", composePath}
	base = append(base, verb...)

	if _, err := exec.LookPath("docker"); err == nil {
		return "docker", append([]string{"compose"}, base...), nil
	}
	if _, err := exec.LookPath("docker-compose"); err == nil {
		return "docker-compose", base, nil
	}
	return "", nil, cerr.New("neither docker CLI with compose plugin nor docker-compose found in PATH")
}
