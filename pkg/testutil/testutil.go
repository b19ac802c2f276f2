// pkg/testutil/testutil.go

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	"github.com/serverforge/n8nctl/pkg/telemetry"
	"go.uber.org/zap"
)

// TestRuntimeContext returns a RuntimeContext suitable for package tests:
// background context, no-op logging, noop tracing.
func TestRuntimeContext(t *testing.T) *n8nctl_io.RuntimeContext {
	t.Helper()

	ctx, span := telemetry.Start(context.Background(), "test")
	return &n8nctl_io.RuntimeContext{
		Ctx:       ctx,
		Log:       zap.NewNop(),
		Timestamp: time.Now(),
		Span:      span,
		Command:   "test",
		Component: "testutil",
	}
}
