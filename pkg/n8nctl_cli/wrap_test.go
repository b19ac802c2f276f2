// pkg/n8nctl_cli/wrap_test.go

package n8nctl_cli

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
)

func TestWrapRecoversPanic(t *testing.T) {
	cmd := &cobra.Command{Use: "boom"}

	err := Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		panic("kaboom")
	})(cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWrapPassesThroughHandlerError(t *testing.T) {
	cmd := &cobra.Command{Use: "fail"}
	handlerErr := errors.New("handler failed")

	err := Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		require.NotNil(t, rc)
		require.NotNil(t, rc.Ctx)
		return handlerErr
	})(cmd, nil)

	assert.ErrorIs(t, err, handlerErr)
}

func TestWrapSuccess(t *testing.T) {
	cmd := &cobra.Command{Use: "ok"}
	var captured *n8nctl_io.RuntimeContext

	err := Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		captured = rc
		return nil
	})(cmd, nil)

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "ok", captured.Command)
}
