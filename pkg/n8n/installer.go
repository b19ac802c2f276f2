// pkg/n8n/installer.go

package n8n

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/serverforge/n8nctl/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// HelperScriptURL is the fixed, operator-trusted location of the host setup
// helper. Its contents are an opaque collaborator; n8nctl only fetches and
// runs it when asked to.
const HelperScriptURL = "https://raw.githubusercontent.com/serverforge/host-scripts/main/n8n-host-setup.sh"

// maxHelperScriptSize caps the download so a bad response cannot exhaust
// disk or memory.
const maxHelperScriptSize = 10 * 1024 * 1024

// RunRemoteHelper downloads the helper script over HTTPS to a private temp
// file and executes it with a bounded timeout.
func RunRemoteHelper(rc *n8nctl_io.RuntimeContext) error {
	return runHelperFrom(rc, HelperScriptURL)
}

func runHelperFrom(rc *n8nctl_io.RuntimeContext, url string) error {
	logger := otelzap.Ctx(rc.Ctx)
	logger.Info("Fetching remote helper script", zap.String("url", url))

	req, err := http.NewRequestWithContext(rc.Ctx, http.MethodGet, url, nil)
	if err != nil {
		return cerr.Wrap(err, "build helper request")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return cerr.Wrap(err, "fetch helper script")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return cerr.Newf("fetch helper script: unexpected status %s", resp.Status)
	}

	script, err := io.ReadAll(io.LimitReader(resp.Body, maxHelperScriptSize+1))
	if err != nil {
		return cerr.Wrap(err, "read helper script")
	}
	if len(script) > maxHelperScriptSize {
		return cerr.Newf("helper script exceeds %d bytes", maxHelperScriptSize)
	}

	tmp, err := os.CreateTemp("", "n8nctl-helper-*.sh")
	if err != nil {
		return cerr.Wrap(err, "create helper temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o700); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "chmod helper script")
	}
	if _, err := tmp.Write(script); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "write helper script")
	}
	if err := tmp.Close(); err != nil {
		return cerr.Wrap(err, "close helper script")
	}

	logger.Info("Executing helper script", zap.String("path", tmpName))
	_, err = execute.Run(rc.Ctx, execute.Options{
		Command: "/bin/bash",
		Args:    []string{tmpName},
		Timeout: 10 * time.Minute,
	})
	return cerr.Wrap(err, "helper script failed")
}
