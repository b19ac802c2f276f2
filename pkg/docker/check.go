// pkg/docker/check.go

package docker

import (
	"context"
	"net"
	"os/exec"
	"time"

	"github.com/serverforge/n8nctl/pkg/execute"
	"github.com/serverforge/n8nctl/pkg/n8nctl_err"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RegistryHost is resolved during preflight to confirm the daemon will be
// able to reach the image registry.
const RegistryHost = "registry-1.docker.io"

// Preflight confirms the container runtime is installed, responsive, and can
// resolve the registry. Installation of Docker itself is out of scope; a
// missing runtime is reported with remediation, not repaired.
func Preflight(rc *n8nctl_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)

	if _, err := exec.LookPath("docker"); err != nil {
		return n8nctl_err.Classify(n8nctl_err.CategoryDependency, "preflight",
			"docker CLI not found in PATH", err,
			"sh -c 'curl -fsSL https://get.docker.com | sh'",
			"systemctl status docker",
		)
	}

	if err := CheckComposeInstalled(rc.Ctx); err != nil {
		return n8nctl_err.Classify(n8nctl_err.CategoryDependency, "preflight",
			"docker compose not available", err,
			"docker compose version",
			"apt-get install docker-compose-plugin",
		)
	}

	if err := execute.RunSimple(rc.Ctx, "docker", "info"); err != nil {
		return n8nctl_err.Classify(n8nctl_err.CategorySystem, "preflight",
			"docker daemon not responding", err,
			"systemctl status docker",
			"journalctl -u docker --no-pager -n 50",
		)
	}

	if err := checkDNS(rc.Ctx, RegistryHost); err != nil {
		// DNS trouble degrades pulls but the daemon may still have cached
		// images, so this is a warning rather than a hard failure.
		logger.Warn("Registry hostname did not resolve; image pulls may fail",
			zap.String("host", RegistryHost), zap.Error(err))
	}

	logger.Info("Container runtime preflight passed")
	return nil
}

// CheckComposeInstalled accepts either the compose plugin or the legacy
// docker-compose binary.
func CheckComposeInstalled(ctx context.Context) error {
	if err := execute.RunSimple(ctx, "docker", "compose", "version"); err == nil {
		return nil
	}
	if err := execute.RunSimple(ctx, "docker-compose", "version"); err == nil {
		return nil
	}
	return cerr.New("docker compose not found")
}

func checkDNS(ctx context.Context, host string) error {
	resolveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := net.DefaultResolver.LookupHost(resolveCtx, host)
	return err
}
