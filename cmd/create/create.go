// cmd/create/create.go

package create

import (
	"github.com/spf13/cobra"
)

// CreateCmd is the root command for create operations.
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create resources (e.g., the n8n deployment)",
	Long:  `The create command installs resources managed by n8nctl.`,
}

func init() {
	CreateCmd.AddCommand(CreateN8NCmd)
}
