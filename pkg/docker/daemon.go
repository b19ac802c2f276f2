// pkg/docker/daemon.go

package docker

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/serverforge/n8nctl/pkg/execute"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DaemonConfigPath is where the container runtime reads its configuration.
const DaemonConfigPath = "/etc/docker/daemon.json"

// DaemonConfig models the subset of daemon.json n8nctl manages: public DNS
// resolvers (pull failures on hosts with broken resolved setups) and log
// rotation so container logs do not fill the disk.
type DaemonConfig struct {
	DNS       []string          `json:"dns,omitempty"`
	LogDriver string            `json:"log-driver,omitempty"`
	LogOpts   map[string]string `json:"log-opts,omitempty"`
}

// DefaultDaemonConfig returns the configuration written during preparation.
func DefaultDaemonConfig() DaemonConfig {
	return DaemonConfig{
		DNS:       []string{"8.8.8.8", "1.1.1.1"},
		LogDriver: "json-file",
		LogOpts: map[string]string{
			"max-size": "10m",
			"max-file": "3",
		},
	}
}

// WriteDaemonConfig writes cfg to path atomically and restarts the daemon so
// it takes effect. The file is written once here and afterwards only read by
// the runtime, never by n8nctl.
func WriteDaemonConfig(rc *n8nctl_io.RuntimeContext, path string, cfg DaemonConfig) error {
	logger := otelzap.Ctx(rc.Ctx)

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return cerr.Wrap(err, "marshal daemon config")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cerr.Wrapf(err, "create %s", filepath.Dir(path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".daemon-*.json")
	if err != nil {
		return cerr.Wrap(err, "create temp daemon config")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return cerr.Wrap(err, "write temp daemon config")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return cerr.Wrap(err, "close temp daemon config")
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return cerr.Wrapf(err, "install daemon config at %s", path)
	}

	logger.Info("Daemon configuration written",
		zap.String("path", path), zap.Strings("dns", cfg.DNS))
	return nil
}

// RestartDaemon bounces the docker service and waits for it to respond.
func RestartDaemon(rc *n8nctl_io.RuntimeContext) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("Restarting docker daemon")

	if err := execute.RunSimple(rc.Ctx, "systemctl", "restart", "docker"); err != nil {
		return cerr.Wrap(err, "systemctl restart docker")
	}
	if err := execute.RunSimple(rc.Ctx, "docker", "info"); err != nil {
		return cerr.Wrap(err, "docker daemon did not come back after restart")
	}
	return nil
}
