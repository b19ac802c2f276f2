// pkg/n8n/apply.go

package n8n

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Applier brings the descriptor's services up and down and checks
// reachability. Probe results are advisory; only compose failures are fatal.
type Applier struct {
	Runner       docker.ComposeRunner
	SettleDelay  time.Duration
	ProbeTimeout time.Duration
}

// NewApplier returns an Applier with production timings.
func NewApplier(runner docker.ComposeRunner) *Applier {
	return &Applier{
		Runner:       runner,
		SettleDelay:  15 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

// ApplyResult reports the outcome of one apply.
type ApplyResult struct {
	Ready    bool
	ProbeURL string
	ProbeErr error
}

// Apply runs compose up, waits the fixed settle delay, then probes the
// loopback endpoint exactly once. The probe is observed, not retried.
func (a *Applier) Apply(rc *n8nctl_io.RuntimeContext, installDir string) (*ApplyResult, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if err := a.Runner.Up(rc.Ctx, installDir); err != nil {
		return nil, &ApplyError{Stage: "compose up", Cause: err}
	}

	logger.Info("Services started, waiting for settle",
		zap.Duration("delay", a.SettleDelay))
	a.sleep(rc.Ctx, a.SettleDelay)

	probeURL := fmt.Sprintf("http://127.0.0.1:%d/", AppPort)
	err := a.Probe(rc.Ctx, probeURL)
	result := &ApplyResult{
		Ready:    err == nil,
		ProbeURL: probeURL,
		ProbeErr: err,
	}

	if result.Ready {
		logger.Info("Application reachable", zap.String("url", probeURL))
	} else {
		logger.Warn("Application not yet reachable; it may still be starting",
			zap.String("url", probeURL), zap.Error(err))
	}
	return result, nil
}

// Teardown stops and removes the services. Persisted volumes and the
// descriptor itself stay on disk.
func (a *Applier) Teardown(rc *n8nctl_io.RuntimeContext, installDir string) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("Stopping services", zap.String("dir", installDir))

	if err := a.Runner.Down(rc.Ctx, installDir); err != nil {
		return &ApplyError{Stage: "compose down", Cause: err}
	}
	return nil
}

// Probe performs one bounded HTTP GET. Any HTTP response counts as
// reachable; n8n answers 401 behind basic auth.
func (a *Applier) Probe(ctx context.Context, url string) error {
	probeCtx, cancel := context.WithTimeout(ctx, a.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func (a *Applier) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
