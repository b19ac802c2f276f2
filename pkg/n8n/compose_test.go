// pkg/n8n/compose_test.go

package n8n

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/testutil"
)

func TestGenerateDescriptorShape(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	compose, creds, err := Generate(rc, validConfig())
	require.NoError(t, err)
	require.NotNil(t, compose)
	require.NotNil(t, creds)

	app := compose.Services.N8N
	db := compose.Services.Postgres

	// Exactly one startup dependency, gated on health rather than start.
	require.Len(t, app.DependsOn, 1)
	cond, ok := app.DependsOn[DatabaseService]
	require.True(t, ok)
	assert.Equal(t, "service_healthy", cond.Condition)

	// Exactly one public endpoint: the application port, loopback-bound.
	assert.Empty(t, db.Ports)
	require.Len(t, app.Ports, 1)
	assert.Equal(t, "127.0.0.1:5678:5678", app.Ports[0])

	require.NotNil(t, db.HealthCheck)
	assert.Equal(t, []string{"CMD-SHELL", "pg_isready -U n8n -d n8n"}, db.HealthCheck.Test)
	assert.Equal(t, "5s", db.HealthCheck.Interval)
	assert.Equal(t, "5s", db.HealthCheck.Timeout)
	assert.Equal(t, 10, db.HealthCheck.Retries)

	assert.Equal(t, PostgresImage, db.Image)
	assert.Equal(t, N8NImage, app.Image)
	assert.Equal(t, "always", app.Restart)

	protocol, _ := envGet(app.Environment, "N8N_PROTOCOL")
	assert.Equal(t, "https", protocol)
	webhook, _ := envGet(app.Environment, "WEBHOOK_URL")
	assert.Equal(t, "https://n8n.example.org/", webhook)
	key, ok := envGet(app.Environment, "N8N_ENCRYPTION_KEY")
	require.True(t, ok)
	assert.Len(t, key, 64)

	assert.Equal(t, AdminUser, creds.AdminUsername)
	assert.Equal(t, "https://n8n.example.org/", creds.AccessURL)
}

func TestGenerateIPv6Scenario(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	cfg := &DeploymentConfig{
		DatabasePassword: "x",
		AdminPassword:    "y",
		Domain:           "2607:fea8::1",
		InstallDir:       "/opt/n8n",
	}

	compose, creds, err := Generate(rc, cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://[2607:fea8::1]/", creds.AccessURL)

	tz, _ := envGet(compose.Services.N8N.Environment, "GENERIC_TIMEZONE")
	assert.Equal(t, "UTC", tz)
}

func TestGenerateMissingFieldFailsBeforeSideEffects(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	cfg := validConfig()
	cfg.AdminPassword = ""

	_, _, err := Generate(rc, cfg)
	var missing *MissingConfigurationError
	require.True(t, errors.As(err, &missing))
}

func TestGenerateDeterministicSerialization(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	compose, _, err := Generate(rc, validConfig())
	require.NoError(t, err)

	first, err := yaml.Marshal(compose)
	require.NoError(t, err)
	second, err := yaml.Marshal(compose)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWriteArtifacts(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()

	compose, creds, err := Generate(rc, validConfig())
	require.NoError(t, err)

	require.NoError(t, WriteArtifacts(rc, dir, compose, creds))

	composePath := filepath.Join(dir, docker.ComposeFileName)
	credsPath := filepath.Join(dir, CredentialsFileName)

	info, err := os.Stat(credsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	credsData, err := os.ReadFile(credsPath)
	require.NoError(t, err)
	assert.Contains(t, string(credsData), "admin username: admin")
	assert.Contains(t, string(credsData), "access url: https://n8n.example.org/")

	// Descriptor round-trips through the loader.
	loaded, err := LoadDescriptor(rc, dir)
	require.NoError(t, err)
	assert.Equal(t, compose, loaded)

	// No stray staging files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{filepath.Base(composePath), filepath.Base(credsPath)}, names)
}

func TestWriteArtifactsUnwritableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	rc := testutil.TestRuntimeContext(t)

	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o500))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o700) })

	compose, creds, err := Generate(rc, validConfig())
	require.NoError(t, err)

	dir := filepath.Join(parent, "n8n")
	err = WriteArtifacts(rc, dir, compose, creds)

	var persistence *PersistenceError
	require.True(t, errors.As(err, &persistence))
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteArtifactsReinstallKeepsPreviousDescriptorOnFailure(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)
	dir := t.TempDir()

	compose, creds, err := Generate(rc, validConfig())
	require.NoError(t, err)
	require.NoError(t, WriteArtifacts(rc, dir, compose, creds))

	composePath := filepath.Join(dir, docker.ComposeFileName)
	previous, err := os.ReadFile(composePath)
	require.NoError(t, err)

	// A directory at the credentials path makes the second rename fail after
	// the descriptor rename already succeeded.
	credsPath := filepath.Join(dir, CredentialsFileName)
	require.NoError(t, os.Remove(credsPath))
	require.NoError(t, os.Mkdir(credsPath, 0o755))

	next, nextCreds, err := Generate(rc, validConfig())
	require.NoError(t, err)
	err = WriteArtifacts(rc, dir, next, nextCreds)

	var persistence *PersistenceError
	require.True(t, errors.As(err, &persistence))

	// The operator's previous descriptor is back, not deleted.
	restored, err := os.ReadFile(composePath)
	require.NoError(t, err)
	assert.Equal(t, previous, restored)
}

func TestLoadDescriptorNotFound(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	_, err := LoadDescriptor(rc, t.TempDir())

	var notFound *DescriptorNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestImageRefs(t *testing.T) {
	rc := testutil.TestRuntimeContext(t)

	compose, _, err := Generate(rc, validConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{PostgresImage, N8NImage}, compose.ImageRefs())
}
