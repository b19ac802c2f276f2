// pkg/n8nctl_cli/wrap.go

package n8nctl_cli

import (
	"context"

	"github.com/serverforge/n8nctl/pkg/logger"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	"github.com/spf13/cobra"
)

// Wrap adapts a handler to cobra's RunE, adding panic recovery and the
// command logging lifecycle.
func Wrap(fn func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		logger.InitFallback()

		rc := n8nctl_io.NewContext(context.Background(), cmd.Name())
		defer rc.End(&err)
		defer rc.HandlePanic(&err)

		return fn(rc, cmd, args)
	}
}
