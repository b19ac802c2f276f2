// cmd/root.go

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/serverforge/n8nctl/cmd/create"
	del "github.com/serverforge/n8nctl/cmd/delete"
	"github.com/serverforge/n8nctl/cmd/inspect"
	"github.com/serverforge/n8nctl/cmd/update"
	"github.com/serverforge/n8nctl/pkg/logger"
	"github.com/serverforge/n8nctl/pkg/n8nctl_err"
)

// RootCmd is the base command for n8nctl.
var RootCmd = &cobra.Command{
	Use:   "n8nctl",
	Short: "Deploy and manage a self-hosted n8n instance with Docker Compose",
	Long: `n8nctl installs, repairs, and reconfigures a self-hosted n8n workflow
automation instance and its PostgreSQL database as Docker containers on a
single Ubuntu host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// RegisterCommands adds all subcommands to the root command.
func RegisterCommands() {
	for _, subCmd := range []*cobra.Command{
		create.CreateCmd,
		update.UpdateCmd,
		del.DeleteCmd,
		inspect.InspectCmd,
	} {
		RootCmd.AddCommand(subCmd)
	}
}

// Execute initializes and runs the root command.
func Execute() {
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}()

	RegisterCommands()

	if err := RootCmd.Execute(); err != nil {
		log := logger.L()

		if n8nctl_err.IsExpectedUserError(err) {
			log.Warn("Command completed with user error", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Notice: %v\n", err)
			os.Exit(0)
		}

		var classified *n8nctl_err.ClassifiedError
		if errors.As(err, &classified) {
			log.Error("Command failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n", classified)
			os.Exit(classified.ExitCode())
		}

		log.Error("Command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
