// cmd/inspect/inspect.go

package inspect

import (
	"github.com/spf13/cobra"
)

// InspectCmd is the root command for inspect operations.
var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect resources (e.g., the n8n deployment state)",
	Long:  `The inspect command reports the state of resources managed by n8nctl.`,
}

func init() {
	InspectCmd.AddCommand(InspectN8NCmd)
}
