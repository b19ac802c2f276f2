// cmd/delete/n8n.go

package delete

import (
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

// DeleteN8NCmd stops and removes the running n8n services. Persisted
// volumes, the descriptor, and the credentials record stay on disk.
var DeleteN8NCmd = &cobra.Command{
	Use:   "n8n",
	Short: "Stop and remove the n8n services (data is kept)",
	Long: `Stop and remove the running n8n and PostgreSQL containers.

Persistent volumes and the files in the install directory are preserved;
run 'n8nctl create n8n' again to bring the deployment back.`,

	RunE: n8nctl_cli.Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = n8n.DefaultInstallDir
		}

		logger.Info("Tearing down n8n deployment", zap.String("dir", dir))

		applier := n8n.NewApplier(docker.NewCLIRunner())
		if err := applier.Teardown(rc, dir); err != nil {
			return n8nctl_err.Classify(n8nctl_err.CategorySystem, "teardown",
				"failed to stop services", err,
				fmt.Sprintf("docker compose -f %s/docker-compose.yml ps", dir),
				"docker ps -a")
		}

		fmt.Printf("Services stopped. Data volumes and %s were kept.\n", dir)
		return nil
	}),
}

func init() {
	DeleteN8NCmd.Flags().String("dir", "", "Install directory (default "+n8n.DefaultInstallDir+")")
}
