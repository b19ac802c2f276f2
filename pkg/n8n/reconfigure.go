// pkg/n8n/reconfigure.go

package n8n

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/docker/go-connections/nat"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Reconfigurator switches an existing deployment from private (loopback,
// https) to exposed (wildcard bind, http) mode. It only ever rewrites an
// existing descriptor; it never fabricates one.
type Reconfigurator struct {
	Applier *Applier
}

// NewReconfigurator wires a Reconfigurator over the given applier.
func NewReconfigurator(applier *Applier) *Reconfigurator {
	return &Reconfigurator{Applier: applier}
}

// ReconfigureResult reports what happened, including the advisory probes.
type ReconfigureResult struct {
	Changed           bool
	BackupPath        string
	LoopbackReachable bool
	AddressReachable  bool
}

// Reconfigure performs the private-to-exposed transition against the
// descriptor in installDir. Exactly four fields change: the public bind
// address, the protocol scheme, the webhook URL, and the declared host.
// Calling it again for the same address is a no-op reported as success.
func (r *Reconfigurator) Reconfigure(rc *n8nctl_io.RuntimeContext, installDir, newAddress string) (*ComposeFile, *ReconfigureResult, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if newAddress == "" {
		return nil, nil, &MissingConfigurationError{Field: "address"}
	}

	compose, err := LoadDescriptor(rc, installDir)
	if err != nil {
		return nil, nil, err
	}

	result := &ReconfigureResult{}

	if isExposedAt(compose, newAddress) {
		logger.Info("Deployment already exposed at this address; nothing to do",
			zap.String("address", newAddress))
		r.probeBoth(rc, newAddress, result)
		return compose, result, nil
	}

	composePath := filepath.Join(installDir, docker.ComposeFileName)
	backupPath, err := snapshotDescriptor(composePath)
	if err != nil {
		return nil, nil, &PersistenceError{Path: composePath, Cause: err}
	}
	result.BackupPath = backupPath
	logger.Info("Descriptor backed up", zap.String("backup", backupPath))

	if err := r.Applier.Teardown(rc, installDir); err != nil {
		// Nothing has been mutated yet; the deployment is merely stopped.
		// Bring the original back up before reporting.
		r.restore(rc, composePath, backupPath)
		return nil, nil, err
	}

	if err := exposeDescriptor(compose, newAddress); err != nil {
		r.restore(rc, composePath, backupPath)
		return nil, nil, err
	}

	if err := writeDescriptor(rc, composePath, compose); err != nil {
		r.restore(rc, composePath, backupPath)
		return nil, nil, err
	}

	if err := r.Applier.Runner.Up(rc.Ctx, installDir); err != nil {
		logger.Error("Reapply failed; restoring previous descriptor", zap.Error(err))
		r.restore(rc, composePath, backupPath)
		return nil, nil, &ApplyError{Stage: "compose up after reconfigure", Cause: err}
	}

	result.Changed = true
	logger.Info("Deployment reconfigured to exposed mode",
		zap.String("address", newAddress),
		zap.String("access_url", ExposedAccessURL(newAddress)))

	r.Applier.sleep(rc.Ctx, r.Applier.SettleDelay)
	r.probeBoth(rc, newAddress, result)

	return compose, result, nil
}

// probeBoth checks loopback and the new address independently; neither
// outcome affects the operation's success.
func (r *Reconfigurator) probeBoth(rc *n8nctl_io.RuntimeContext, newAddress string, result *ReconfigureResult) {
	logger := otelzap.Ctx(rc.Ctx)

	loopbackURL := fmt.Sprintf("http://127.0.0.1:%d/", AppPort)
	addressURL := ExposedAccessURL(newAddress)

	if err := r.Applier.Probe(rc.Ctx, loopbackURL); err != nil {
		logger.Warn("Loopback probe failed", zap.String("url", loopbackURL), zap.Error(err))
	} else {
		result.LoopbackReachable = true
	}
	if err := r.Applier.Probe(rc.Ctx, addressURL); err != nil {
		logger.Warn("Address probe failed", zap.String("url", addressURL), zap.Error(err))
	} else {
		result.AddressReachable = true
	}
}

// restore copies the backup over the descriptor and reapplies it so a failed
// reconfigure never leaves the deployment half-mutated.
func (r *Reconfigurator) restore(rc *n8nctl_io.RuntimeContext, composePath, backupPath string) {
	logger := otelzap.Ctx(rc.Ctx)

	data, err := os.ReadFile(backupPath)
	if err != nil {
		logger.Error("Restore failed: cannot read backup",
			zap.String("backup", backupPath), zap.Error(err))
		return
	}
	if err := os.WriteFile(composePath, data, 0o644); err != nil {
		logger.Error("Restore failed: cannot rewrite descriptor",
			zap.String("path", composePath), zap.Error(err))
		return
	}
	if err := r.Applier.Runner.Up(rc.Ctx, filepath.Dir(composePath)); err != nil {
		logger.Error("Restore failed: original descriptor did not come back up",
			zap.Error(err))
		return
	}
	logger.Info("Previous descriptor restored", zap.String("backup", backupPath))
}

// exposeDescriptor mutates the four exposure fields in place and nothing
// else.
func exposeDescriptor(compose *ComposeFile, newAddress string) error {
	app := &compose.Services.N8N

	if len(app.Ports) == 0 {
		return cerr.New("application service declares no port binding")
	}
	rewritten, err := rewriteBindAddress(app.Ports[0], "0.0.0.0")
	if err != nil {
		return err
	}
	app.Ports[0] = rewritten

	app.Environment = envSet(app.Environment, "N8N_PROTOCOL", "http")
	app.Environment = envSet(app.Environment, "WEBHOOK_URL", ExposedAccessURL(newAddress))
	app.Environment = envSet(app.Environment, "N8N_HOST", newAddress)
	return nil
}

// isExposedAt detects whether the descriptor already carries the exposed
// state for this address, making a repeat invocation a no-op.
func isExposedAt(compose *ComposeFile, newAddress string) bool {
	app := compose.Services.N8N

	if len(app.Ports) == 0 {
		return false
	}
	hostIP, _, err := parseBinding(app.Ports[0])
	if err != nil || hostIP != "0.0.0.0" {
		return false
	}

	protocol, _ := envGet(app.Environment, "N8N_PROTOCOL")
	host, _ := envGet(app.Environment, "N8N_HOST")
	webhook, _ := envGet(app.Environment, "WEBHOOK_URL")

	return protocol == "http" && host == newAddress && webhook == ExposedAccessURL(newAddress)
}

// rewriteBindAddress swaps the host IP of a port spec, keeping both ports.
func rewriteBindAddress(spec, newHostIP string) (string, error) {
	_, ports, err := parseBinding(spec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s", newHostIP, ports[0], ports[1]), nil
}

// parseBinding returns the host IP and the host/container port pair of a
// compose port spec such as "127.0.0.1:5678:5678".
func parseBinding(spec string) (string, [2]string, error) {
	mappings, err := nat.ParsePortSpec(spec)
	if err != nil {
		return "", [2]string{}, cerr.Wrapf(err, "parse port spec %q", spec)
	}
	if len(mappings) == 0 {
		return "", [2]string{}, cerr.Newf("port spec %q yields no mapping", spec)
	}
	m := mappings[0]
	return m.Binding.HostIP, [2]string{m.Binding.HostPort, m.Port.Port()}, nil
}

// snapshotDescriptor copies the descriptor to a uniquely named timestamped
// backup. An existing backup is never overwritten.
func snapshotDescriptor(composePath string) (string, error) {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return "", err
	}

	base := fmt.Sprintf("%s.backup.%s", composePath, time.Now().Format("20060102_150405"))
	backupPath := base
	for i := 1; ; i++ {
		if _, err := os.Stat(backupPath); os.IsNotExist(err) {
			break
		}
		backupPath = fmt.Sprintf("%s.%d", base, i)
	}

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", err
	}
	return backupPath, nil
}

// writeDescriptor serializes the descriptor and renames it into place.
func writeDescriptor(rc *n8nctl_io.RuntimeContext, composePath string, compose *ComposeFile) error {
	if err := n8nctl_io.WriteYAML(rc.Ctx, composePath, compose); err != nil {
		return &PersistenceError{Path: composePath, Cause: err}
	}
	return nil
}
