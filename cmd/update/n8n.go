// cmd/update/n8n.go

package update

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8n"
	"github.com/serverforge/n8nctl/pkg/n8nctl_cli"
	"github.com/serverforge/n8nctl/pkg/n8nctl_err"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
)

// UpdateN8NCmd switches an existing deployment from private (loopback,
// https) to exposed (wildcard bind, http) mode, typically for tailnet
// access.
var UpdateN8NCmd = &cobra.Command{
	Use:   "n8n",
	Short: "Expose a private n8n deployment on a reachable address",
	Long: `Reconfigure an installed n8n deployment for direct HTTP access.

The existing descriptor is backed up to a uniquely named timestamped file,
the services are torn down, exactly four fields are rewritten (bind address,
protocol, webhook URL, declared host), and the services are brought back up.
If reapplying fails, the previous descriptor is restored. Running the same
reconfiguration twice is a no-op.

Examples:
  n8nctl update n8n --address 100.64.1.5
  n8nctl update n8n --address 100.64.1.5 --dir /root/n8n`,

	RunE: n8nctl_cli.Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		address, _ := cmd.Flags().GetString("address")
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = n8n.DefaultInstallDir
		}

		logger.Info("Reconfiguring n8n deployment",
			zap.String("address", address), zap.String("dir", dir))

		reconfigurator := n8n.NewReconfigurator(n8n.NewApplier(docker.NewCLIRunner()))
		_, result, err := reconfigurator.Reconfigure(rc, dir, address)
		if err != nil {
			var notFound *n8n.DescriptorNotFoundError
			if errors.As(err, &notFound) {
				return n8nctl_err.NewExpectedError(fmt.Errorf(
					"no deployment found in %s; run 'n8nctl create n8n' first", dir))
			}
			return n8nctl_err.Classify(n8nctl_err.CategorySystem, "reconfigure",
				"failed to reconfigure deployment", err,
				fmt.Sprintf("docker compose -f %s/docker-compose.yml logs", dir),
				fmt.Sprintf("ls -l %s", dir))
		}

		if !result.Changed {
			fmt.Printf("Deployment already exposed at %s; nothing changed.\n", address)
		} else {
			fmt.Printf("Deployment exposed at %s\n", n8n.ExposedAccessURL(address))
			fmt.Printf("  Backup: %s\n", result.BackupPath)
		}
		fmt.Printf("  Loopback reachable: %v\n", result.LoopbackReachable)
		fmt.Printf("  Address reachable:  %v\n", result.AddressReachable)
		return nil
	}),
}

func init() {
	UpdateN8NCmd.Flags().String("address", "", "Address to expose the deployment on (e.g. a tailnet IP)")
	UpdateN8NCmd.Flags().String("dir", "", "Install directory (default "+n8n.DefaultInstallDir+")")
	_ = UpdateN8NCmd.MarkFlagRequired("address")
}
