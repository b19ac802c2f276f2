// pkg/n8n/config.go

package n8n

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DeploymentConfig carries everything the generator needs. It replaces the
// global mutable state a shell implementation would scatter across scripts.
type DeploymentConfig struct {
	DatabasePassword string
	AdminPassword    string
	Domain           string // hostname, IPv4, or IPv6 literal
	Timezone         string // IANA zone id
	InstallDir       string
}

// LoadConfigFromEnv reads the deployment configuration from the environment.
// Only the timezone and install directory carry defaults.
func LoadConfigFromEnv() *DeploymentConfig {
	v := viper.New()
	bindings := map[string]string{
		"database_password": "DB_PASSWORD",
		"admin_password":    "ADMIN_PASSWORD",
		"domain":            "DOMAIN_NAME",
		"timezone":          "TIMEZONE",
		"install_dir":       "N8N_DIR",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("timezone", "UTC")
	v.SetDefault("install_dir", DefaultInstallDir)

	return &DeploymentConfig{
		DatabasePassword: v.GetString("database_password"),
		AdminPassword:    v.GetString("admin_password"),
		Domain:           v.GetString("domain"),
		Timezone:         v.GetString("timezone"),
		InstallDir:       v.GetString("install_dir"),
	}
}

// Validate fails fast with the name of the first missing field.
func (c *DeploymentConfig) Validate() error {
	checks := []struct {
		field string
		value string
	}{
		{"database password (DB_PASSWORD)", c.DatabasePassword},
		{"admin password (ADMIN_PASSWORD)", c.AdminPassword},
		{"domain or address (DOMAIN_NAME)", c.Domain},
		{"install directory (N8N_DIR)", c.InstallDir},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			return &MissingConfigurationError{Field: check.field}
		}
	}
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = "UTC"
	}
	return nil
}

// AccessURL derives the URL operators reach the deployment at while it is in
// private mode: https, no explicit port, trailing slash.
func (c *DeploymentConfig) AccessURL() string {
	return fmt.Sprintf("https://%s/", FormatHost(c.Domain))
}

// ExposedAccessURL derives the URL for exposed mode: plain http against the
// given address with the application port spelled out.
func ExposedAccessURL(address string) string {
	return fmt.Sprintf("http://%s:%d/", FormatHost(address), AppPort)
}

// FormatHost bracket-wraps IPv6 literals for URL composition. A colon in the
// host is the heuristic: hostnames and IPv4 addresses never contain one.
func FormatHost(host string) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "[" + host + "]"
	}
	return host
}
