// pkg/n8n/types.go

package n8n

import "fmt"

const (
	// DefaultInstallDir holds the descriptor, credentials, and backups.
	DefaultInstallDir = "/opt/n8n"

	// AppPort is the single publicly exposed endpoint of the deployment.
	AppPort = 5678

	// AdminUser is the fixed basic-auth account written to the credentials
	// record.
	AdminUser = "admin"

	// Pinned images. The database major version is fixed deliberately;
	// unattended postgres major upgrades corrupt the data volume.
	PostgresImage = "postgres:16-alpine"
	N8NImage      = "docker.n8n.io/n8nio/n8n:latest"

	// Service names inside the descriptor.
	DatabaseService    = "postgres"
	ApplicationService = "n8n"

	// CredentialsFileName sits next to the descriptor, owner-readable only.
	CredentialsFileName = "credentials.txt"
)

// Mode describes how the deployment is reachable.
type Mode string

const (
	// ModePrivate binds to loopback and declares https behind a proxy.
	ModePrivate Mode = "private"
	// ModeExposed binds to the wildcard address and declares plain http,
	// typically for tailnet access.
	ModeExposed Mode = "exposed"
)

// MissingConfigurationError reports a required field that was not provided.
// Absence of anything except the timezone is fatal, never silently defaulted.
type MissingConfigurationError struct {
	Field string
}

func (e *MissingConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Field)
}

// DescriptorNotFoundError reports a reconfigure attempt against a directory
// that holds no descriptor.
type DescriptorNotFoundError struct {
	Path string
}

func (e *DescriptorNotFoundError) Error() string {
	return fmt.Sprintf("compose descriptor not found at %s", e.Path)
}

// PersistenceError reports a filesystem write that failed before any
// artifact became visible.
type PersistenceError struct {
	Path  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// ApplyError reports a failed compose lifecycle operation together with the
// stage it happened in.
type ApplyError struct {
	Stage string
	Cause error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply failed during %s: %v", e.Stage, e.Cause)
}

func (e *ApplyError) Unwrap() error { return e.Cause }
