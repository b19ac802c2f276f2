// cmd/delete/delete.go

package delete

import (
	"github.com/spf13/cobra"
)

// DeleteCmd is the root command for delete operations.
var DeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete resources (e.g., stop the n8n deployment)",
	Long:  `The delete command removes running resources managed by n8nctl.`,
}

func init() {
	DeleteCmd.AddCommand(DeleteN8NCmd)
}
