// cmd/inspect/n8n.go

package inspect

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8n"
	"github.com/serverforge/n8nctl/pkg/n8nctl_cli"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
)

// InspectN8NCmd reports compose service state and probes reachability.
// Everything here is advisory; the command itself only fails when the
// descriptor is missing.
var InspectN8NCmd = &cobra.Command{
	Use:   "n8n",
	Short: "Show n8n deployment state and reachability",

	RunE: n8nctl_cli.Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = n8n.DefaultInstallDir
		}

		compose, err := n8n.LoadDescriptor(rc, dir)
		if err != nil {
			return err
		}

		runner := docker.NewCLIRunner()
		psOut, err := runner.Ps(rc.Ctx, dir)
		if err != nil {
			logger.Warn("Could not list compose services", zap.Error(err))
		} else {
			fmt.Print(psOut)
		}

		applier := n8n.NewApplier(runner)
		probeURL := fmt.Sprintf("http://127.0.0.1:%d/", n8n.AppPort)
		if probeErr := applier.Probe(rc.Ctx, probeURL); probeErr != nil {
			fmt.Printf("Loopback %s: not reachable (%v)\n", probeURL, probeErr)
		} else {
			fmt.Printf("Loopback %s: reachable\n", probeURL)
		}

		fmt.Printf("Images: %v\n", compose.ImageRefs())
		return nil
	}),
}

func init() {
	InspectN8NCmd.Flags().String("dir", "", "Install directory (default "+n8n.DefaultInstallDir+")")
}
