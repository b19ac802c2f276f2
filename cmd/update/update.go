// cmd/update/update.go

package update

import (
	"github.com/spf13/cobra"
)

// UpdateCmd is the root command for update operations.
var UpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update resources (e.g., reconfigure the n8n deployment)",
	Long:  `The update command modifies existing resources managed by n8nctl.`,
}

func init() {
	UpdateCmd.AddCommand(UpdateN8NCmd)
}
