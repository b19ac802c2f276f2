// pkg/n8n/compose.go

package n8n

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ComposeFile is the typed deployment descriptor. Services and volumes are
// fixed named fields rather than maps so serialization is deterministic;
// reapplying an unchanged descriptor must yield byte-identical output.
type ComposeFile struct {
	Services Services `yaml:"services"`
	Volumes  Volumes  `yaml:"volumes"`
}

// Services holds the two services this deployment consists of.
type Services struct {
	Postgres Service `yaml:"postgres"`
	N8N      Service `yaml:"n8n"`
}

// Volumes declares the named persistent volumes.
type Volumes struct {
	PostgresData *VolumeSpec `yaml:"postgres_data"`
	N8NData      *VolumeSpec `yaml:"n8n_data"`
}

// VolumeSpec is empty today; a nil pointer serializes as "name: null", which
// compose reads as an unconfigured named volume.
type VolumeSpec struct{}

// Service mirrors the compose service schema for the fields we manage.
// Environment uses the KEY=value list form to keep ordering stable.
type Service struct {
	Image         string       `yaml:"image"`
	ContainerName string       `yaml:"container_name,omitempty"`
	Restart       string       `yaml:"restart,omitempty"`
	Environment   []string     `yaml:"environment,omitempty"`
	Ports         []string     `yaml:"ports,omitempty"`
	Volumes       []string     `yaml:"volumes,omitempty"`
	DependsOn     DependsOn    `yaml:"depends_on,omitempty"`
	HealthCheck   *HealthCheck `yaml:"healthcheck,omitempty"`
}

// DependsOn maps a service name to its startup condition.
type DependsOn map[string]DependsCondition

// DependsCondition gates service startup; we only ever use service_healthy.
type DependsCondition struct {
	Condition string `yaml:"condition"`
}

// HealthCheck is the database readiness probe definition.
type HealthCheck struct {
	Test     []string `yaml:"test"`
	Interval string   `yaml:"interval,omitempty"`
	Timeout  string   `yaml:"timeout,omitempty"`
	Retries  int      `yaml:"retries,omitempty"`
}

// Generate validates cfg and builds the descriptor plus its credentials
// record. Nothing is written; WriteArtifacts persists both atomically.
func Generate(rc *n8nctl_io.RuntimeContext, cfg *DeploymentConfig) (*ComposeFile, *Credentials, error) {
	logger := otelzap.Ctx(rc.Ctx)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	encryptionKey, err := generateEncryptionKey()
	if err != nil {
		return nil, nil, cerr.Wrap(err, "generate encryption key")
	}

	accessURL := cfg.AccessURL()

	compose := &ComposeFile{
		Services: Services{
			Postgres: Service{
				Image:         PostgresImage,
				ContainerName: DatabaseService,
				Restart:       "always",
				Environment: []string{
					"POSTGRES_DB=n8n",
					"POSTGRES_USER=n8n",
					"POSTGRES_PASSWORD=" + cfg.DatabasePassword,
				},
				Volumes: []string{"postgres_data:/var/lib/postgresql/data"},
				HealthCheck: &HealthCheck{
					Test:     []string{"CMD-SHELL", "pg_isready -U n8n -d n8n"},
					Interval: "5s",
					Timeout:  "5s",
					Retries:  10,
				},
			},
			N8N: Service{
				Image:         N8NImage,
				ContainerName: ApplicationService,
				Restart:       "always",
				Environment: []string{
					"DB_TYPE=postgresdb",
					"DB_POSTGRESDB_HOST=" + DatabaseService,
					"DB_POSTGRESDB_PORT=5432",
					"DB_POSTGRESDB_DATABASE=n8n",
					"DB_POSTGRESDB_USER=n8n",
					"DB_POSTGRESDB_PASSWORD=" + cfg.DatabasePassword,
					"N8N_BASIC_AUTH_ACTIVE=true",
					"N8N_BASIC_AUTH_USER=" + AdminUser,
					"N8N_BASIC_AUTH_PASSWORD=" + cfg.AdminPassword,
					"N8N_HOST=" + cfg.Domain,
					fmt.Sprintf("N8N_PORT=%d", AppPort),
					"N8N_PROTOCOL=https",
					"WEBHOOK_URL=" + accessURL,
					"GENERIC_TIMEZONE=" + cfg.Timezone,
					"TZ=" + cfg.Timezone,
					"N8N_LOG_LEVEL=info",
					"N8N_ENCRYPTION_KEY=" + encryptionKey,
					"N8N_DIAGNOSTICS_ENABLED=false",
					"N8N_BLOCK_ENV_ACCESS_IN_NODE=true",
					"N8N_SECURE_COOKIE=true",
				},
				Ports:   []string{fmt.Sprintf("127.0.0.1:%d:%d", AppPort, AppPort)},
				Volumes: []string{"n8n_data:/home/node/.n8n"},
				DependsOn: DependsOn{
					DatabaseService: {Condition: "service_healthy"},
				},
			},
		},
		Volumes: Volumes{},
	}

	creds := &Credentials{
		Timestamp:        time.Now(),
		ServerAddress:    cfg.Domain,
		DatabasePassword: cfg.DatabasePassword,
		AdminUsername:    AdminUser,
		AdminPassword:    cfg.AdminPassword,
		AccessURL:        accessURL,
	}

	logger.Info("Compose descriptor generated",
		zap.String("domain", cfg.Domain),
		zap.String("timezone", cfg.Timezone),
		zap.String("access_url", accessURL))

	return compose, creds, nil
}

// WriteArtifacts persists the descriptor and credentials into installDir.
// Both files are staged as temp files first and only then renamed into place,
// so a failure leaves no partial artifact behind.
func WriteArtifacts(rc *n8nctl_io.RuntimeContext, installDir string, compose *ComposeFile, creds *Credentials) error {
	logger := otelzap.Ctx(rc.Ctx)

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return &PersistenceError{Path: installDir, Cause: err}
	}

	composeData, err := yaml.Marshal(compose)
	if err != nil {
		return cerr.Wrap(err, "marshal compose descriptor")
	}

	composeTmp, err := stageFile(installDir, composeData, 0o644)
	if err != nil {
		return &PersistenceError{Path: filepath.Join(installDir, docker.ComposeFileName), Cause: err}
	}
	credsTmp, err := stageFile(installDir, []byte(creds.Render()), 0o600)
	if err != nil {
		_ = os.Remove(composeTmp)
		return &PersistenceError{Path: filepath.Join(installDir, CredentialsFileName), Cause: err}
	}

	composePath := filepath.Join(installDir, docker.ComposeFileName)
	credsPath := filepath.Join(installDir, CredentialsFileName)

	// On a re-install the directory may hold a previous descriptor; keep its
	// bytes so a failed second rename can put it back instead of deleting it.
	previous, previousErr := os.ReadFile(composePath)

	if err := os.Rename(composeTmp, composePath); err != nil {
		_ = os.Remove(composeTmp)
		_ = os.Remove(credsTmp)
		return &PersistenceError{Path: composePath, Cause: err}
	}
	if err := os.Rename(credsTmp, credsPath); err != nil {
		if previousErr == nil {
			_ = os.WriteFile(composePath, previous, 0o644)
		} else {
			_ = os.Remove(composePath)
		}
		_ = os.Remove(credsTmp)
		return &PersistenceError{Path: credsPath, Cause: err}
	}

	logger.Info("Deployment artifacts written",
		zap.String("descriptor", composePath),
		zap.String("credentials", credsPath))
	return nil
}

// LoadDescriptor reads the descriptor from installDir.
func LoadDescriptor(rc *n8nctl_io.RuntimeContext, installDir string) (*ComposeFile, error) {
	composePath := filepath.Join(installDir, docker.ComposeFileName)
	if _, err := os.Stat(composePath); err != nil {
		return nil, &DescriptorNotFoundError{Path: composePath}
	}

	var compose ComposeFile
	if err := n8nctl_io.ReadYAML(rc.Ctx, composePath, &compose); err != nil {
		return nil, err
	}
	return &compose, nil
}

// ImageRefs lists the images the descriptor depends on, for prefetching.
func (c *ComposeFile) ImageRefs() []string {
	return []string{c.Services.Postgres.Image, c.Services.N8N.Image}
}

func stageFile(dir string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(dir, ".staged-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}

func generateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}

// envGet returns the value for key in a KEY=value environment list.
func envGet(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			return entry[len(prefix):], true
		}
	}
	return "", false
}

// envSet replaces the value for key in place, appending when absent.
func envSet(env []string, key, value string) []string {
	prefix := key + "="
	for i, entry := range env {
		if strings.HasPrefix(entry, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
