// pkg/docker/prefetch.go
//
// Best-effort image prefetching over the Docker SDK. Failures never abort the
// caller's pipeline; compose fetches missing images itself on first use.

package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// PullOutcome records how a single image pull ended.
type PullOutcome string

const (
	PullSuccess  PullOutcome = "success"
	PullFailed   PullOutcome = "failed"
	PullTimedOut PullOutcome = "timed_out"
)

// PrefetchReport maps each image reference to its pull outcome.
type PrefetchReport struct {
	Outcomes map[string]PullOutcome
}

// AllFailed reports whether not a single image was pulled.
func (r *PrefetchReport) AllFailed() bool {
	for _, o := range r.Outcomes {
		if o == PullSuccess {
			return false
		}
	}
	return len(r.Outcomes) > 0
}

// Failures returns the references that did not pull, in no particular order.
func (r *PrefetchReport) Failures() []string {
	var refs []string
	for ref, o := range r.Outcomes {
		if o != PullSuccess {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ImagePuller pulls one image reference; the SDK-backed implementation is
// swapped out in tests.
type ImagePuller interface {
	Pull(ctx context.Context, ref string) error
}

// Prefetch pulls each reference independently, bounding every attempt with
// perImageTimeout. It always returns a report and never an error.
func Prefetch(rc *n8nctl_io.RuntimeContext, puller ImagePuller, refs []string, perImageTimeout time.Duration) *PrefetchReport {
	logger := otelzap.Ctx(rc.Ctx)
	report := &PrefetchReport{Outcomes: make(map[string]PullOutcome, len(refs))}

	for _, ref := range refs {
		pullCtx, cancel := context.WithTimeout(rc.Ctx, perImageTimeout)
		err := puller.Pull(pullCtx, ref)
		cancel()

		switch {
		case err == nil:
			logger.Info("Image prefetched", zap.String("image", ref))
			report.Outcomes[ref] = PullSuccess
		case errors.Is(err, context.DeadlineExceeded):
			logger.Warn("Image pull timed out",
				zap.String("image", ref), zap.Duration("timeout", perImageTimeout))
			report.Outcomes[ref] = PullTimedOut
		default:
			logger.Warn("Image pull failed", zap.String("image", ref), zap.Error(err))
			report.Outcomes[ref] = PullFailed
		}
	}

	return report
}

// SDKPuller pulls images through the Docker Engine API.
type SDKPuller struct {
	cli *client.Client
	log *zap.Logger
}

// NewSDKPuller builds a puller from the environment-configured Docker client.
func NewSDKPuller(log *zap.Logger) (*SDKPuller, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, cerr.Wrap(err, "create docker client")
	}
	return &SDKPuller{cli: cli, log: log}, nil
}

// Close releases the underlying API client.
func (p *SDKPuller) Close() error {
	return p.cli.Close()
}

// pullEvent is the subset of the daemon's pull progress stream we log.
type pullEvent struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Error  string `json:"error"`
}

// Pull streams one image, draining the progress events. The pull is not
// complete until the stream ends, so the decode loop doubles as the wait.
func (p *SDKPuller) Pull(ctx context.Context, ref string) error {
	reader, err := p.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return cerr.Wrapf(err, "pull %s", ref)
	}
	defer func() { _ = reader.Close() }()

	dec := json.NewDecoder(reader)
	for {
		var event pullEvent
		if err := dec.Decode(&event); err != nil {
			if err == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return cerr.Wrapf(err, "decode pull stream for %s", ref)
		}
		if event.Error != "" {
			return cerr.Newf("pull %s: %s", ref, event.Error)
		}
		if event.ID == "" && event.Status != "" {
			p.log.Debug("Pull status",
				zap.String("image", ref),
				zap.String("status", strings.TrimSpace(event.Status)))
		}
	}
}
