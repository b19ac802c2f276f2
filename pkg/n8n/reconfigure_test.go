// pkg/n8n/reconfigure_test.go

package n8n

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	"github.com/serverforge/n8nctl/pkg/testutil"
)

// fakeRunner records compose lifecycle calls and can be told to fail.
type fakeRunner struct {
	upCalls   int
	downCalls int
	failUpAt  int // fail the Nth Up call (1-based), 0 means never
	upErr     error
}

func (f *fakeRunner) Up(ctx context.Context, dir string) error {
	f.upCalls++
	if f.failUpAt > 0 && f.upCalls == f.failUpAt {
		if f.upErr != nil {
			return f.upErr
		}
		return errors.New("compose up failed")
	}
	return nil
}

func (f *fakeRunner) Down(ctx context.Context, dir string) error {
	f.downCalls++
	return nil
}

func (f *fakeRunner) Ps(ctx context.Context, dir string) (string, error) {
	return "", nil
}

func newTestReconfigurator(runner docker.ComposeRunner) *Reconfigurator {
	applier := NewApplier(runner)
	applier.SettleDelay = time.Millisecond
	applier.ProbeTimeout = 50 * time.Millisecond
	return NewReconfigurator(applier)
}

// writePrivateDeployment generates a private-mode descriptor into dir and
// returns its on-disk bytes.
func writePrivateDeployment(t *testing.T, rc *n8nctl_io.RuntimeContext, dir string, cfg *DeploymentConfig) []byte {
	t.Helper()
	compose, creds, err := Generate(rc, cfg)
	require.NoError(t, err)
	require.NoError(t, WriteArtifacts(rc, dir, compose, creds))

	data, err := os.ReadFile(filepath.Join(dir, docker.ComposeFileName))
	require.NoError(t, err)
	return data
}

func TestReconfigureScenario(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()
	writePrivateDeployment(t, rc, dir, validConfig())

	runner := &fakeRunner{}
	reconfigurator := newTestReconfigurator(runner)

	compose, result, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.NoError(t, err)
	require.True(t, result.Changed)

	app := compose.Services.N8N
	assert.Equal(t, []string{"0.0.0.0:5678:5678"}, app.Ports)

	protocol, _ := envGet(app.Environment, "N8N_PROTOCOL")
	assert.Equal(t, "http", protocol)
	webhook, _ := envGet(app.Environment, "WEBHOOK_URL")
	assert.Equal(t, "http://100.64.1.5:5678/", webhook)
	host, _ := envGet(app.Environment, "N8N_HOST")
	assert.Equal(t, "100.64.1.5", host)

	assert.Equal(t, 1, runner.downCalls)
	assert.Equal(t, 1, runner.upCalls)
	assert.FileExists(t, result.BackupPath)
}

func TestReconfigurePreservesUntouchedFields(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	// Randomized secrets and timezones must survive untouched.
	seeded := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < 5; i++ {
		dir := t.TempDir()
		cfg := &DeploymentConfig{
			DatabasePassword: fmt.Sprintf("db-%d-%d", i, seeded.Int63()),
			AdminPassword:    fmt.Sprintf("admin-%d-%d", i, seeded.Int63()),
			Domain:           fmt.Sprintf("host-%d.example.org", i),
			Timezone:         []string{"UTC", "Australia/Perth", "Europe/Berlin"}[i%3],
			InstallDir:       dir,
		}
		writePrivateDeployment(t, rc, dir, cfg)

		before, err := LoadDescriptor(rc, dir)
		require.NoError(t, err)

		reconfigurator := newTestReconfigurator(&fakeRunner{})
		after, result, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
		require.NoError(t, err)
		require.True(t, result.Changed)

		// The database service must be byte-identical.
		assert.Equal(t, before.Services.Postgres, after.Services.Postgres)
		assert.Equal(t, before.Volumes, after.Volumes)

		// On the application service only the four exposure fields move.
		assert.Equal(t, before.Services.N8N.Image, after.Services.N8N.Image)
		assert.Equal(t, before.Services.N8N.Restart, after.Services.N8N.Restart)
		assert.Equal(t, before.Services.N8N.Volumes, after.Services.N8N.Volumes)
		assert.Equal(t, before.Services.N8N.DependsOn, after.Services.N8N.DependsOn)

		touched := map[string]bool{
			"N8N_PROTOCOL": true,
			"WEBHOOK_URL":  true,
			"N8N_HOST":     true,
		}
		require.Len(t, after.Services.N8N.Environment, len(before.Services.N8N.Environment))
		for _, entry := range before.Services.N8N.Environment {
			key := strings.SplitN(entry, "=", 2)[0]
			if touched[key] {
				continue
			}
			got, ok := envGet(after.Services.N8N.Environment, key)
			require.True(t, ok, "key %s disappeared", key)
			want, _ := envGet(before.Services.N8N.Environment, key)
			assert.Equal(t, want, got, "key %s changed", key)
		}
	}
}

func TestReconfigureIdempotent(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()
	writePrivateDeployment(t, rc, dir, validConfig())

	reconfigurator := newTestReconfigurator(&fakeRunner{})

	_, first, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.NoError(t, err)
	require.True(t, first.Changed)

	afterFirst, err := os.ReadFile(filepath.Join(dir, docker.ComposeFileName))
	require.NoError(t, err)

	_, second, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Empty(t, second.BackupPath)

	afterSecond, err := os.ReadFile(filepath.Join(dir, docker.ComposeFileName))
	require.NoError(t, err)
	assert.Equal(t, afterFirst, afterSecond)
}

func TestReconfigureRestoresOnApplyFailure(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()
	original := writePrivateDeployment(t, rc, dir, validConfig())

	// First Up is the reapply of the mutated descriptor; make it fail. The
	// second Up is the recovery reapply of the original.
	runner := &fakeRunner{failUpAt: 1}
	reconfigurator := newTestReconfigurator(runner)

	_, _, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.Error(t, err)

	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))

	// The on-disk descriptor equals the pre-mutation bytes.
	restored, err := os.ReadFile(filepath.Join(dir, docker.ComposeFileName))
	require.NoError(t, err)
	assert.Equal(t, original, restored)

	// Recovery reapplied the original descriptor.
	assert.Equal(t, 2, runner.upCalls)
}

func TestReconfigureBackupsAreUnique(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()
	original := writePrivateDeployment(t, rc, dir, validConfig())

	reconfigurator := newTestReconfigurator(&fakeRunner{})

	_, first, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.NoError(t, err)

	// Revert to private mode on disk to force a second real transition
	// inside the same timestamp second.
	composePath := filepath.Join(dir, docker.ComposeFileName)
	require.NoError(t, os.WriteFile(composePath, original, 0o644))

	_, second, err := reconfigurator.Reconfigure(rc, dir, "100.64.1.5")
	require.NoError(t, err)

	assert.NotEqual(t, first.BackupPath, second.BackupPath)
	assert.FileExists(t, first.BackupPath)
	assert.FileExists(t, second.BackupPath)
}

func TestReconfigureDescriptorNotFound(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	reconfigurator := newTestReconfigurator(&fakeRunner{})
	_, _, err := reconfigurator.Reconfigure(rc, t.TempDir(), "100.64.1.5")

	var notFound *DescriptorNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestReconfigureMissingAddress(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	reconfigurator := newTestReconfigurator(&fakeRunner{})
	_, _, err := reconfigurator.Reconfigure(rc, t.TempDir(), "")

	var missing *MissingConfigurationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "address", missing.Field)
}
