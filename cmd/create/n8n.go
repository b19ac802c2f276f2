// cmd/create/n8n.go

package create

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/serverforge/n8nctl/pkg/docker"
	"github.com/serverforge/n8nctl/pkg/n8n"
	"github.com/serverforge/n8nctl/pkg/n8nctl_cli"
	"github.com/serverforge/n8nctl/pkg/n8nctl_err"
	"github.com/serverforge/n8nctl/pkg/n8nctl_io"
)

// CreateN8NCmd installs n8n and its PostgreSQL database with Docker Compose.
var CreateN8NCmd = &cobra.Command{
	Use:   "n8n",
	Short: "Install n8n with PostgreSQL as Docker containers",
	Long: `Install a self-hosted n8n instance backed by PostgreSQL.

The pipeline runs preflight checks against the container runtime, prefetches
images best-effort, renders the compose descriptor and a credentials record
into the install directory, brings the services up, and probes reachability.

Passwords are read from DB_PASSWORD and ADMIN_PASSWORD; with --interactive
they are prompted for instead.

Examples:
  DB_PASSWORD=... ADMIN_PASSWORD=... n8nctl create n8n --domain n8n.example.org
  n8nctl create n8n --domain n8n.example.org --interactive
  n8nctl create n8n --domain 2607:fea8::1 --timezone Australia/Perth`,

	RunE: n8nctl_cli.Wrap(func(rc *n8nctl_io.RuntimeContext, cmd *cobra.Command, args []string) error {
		logger := otelzap.Ctx(rc.Ctx)

		domain, _ := cmd.Flags().GetString("domain")
		timezone, _ := cmd.Flags().GetString("timezone")
		dir, _ := cmd.Flags().GetString("dir")
		interactive, _ := cmd.Flags().GetBool("interactive")
		skipPrefetch, _ := cmd.Flags().GetBool("skip-prefetch")
		configureDaemon, _ := cmd.Flags().GetBool("configure-daemon")
		runHelper, _ := cmd.Flags().GetBool("run-helper")

		cfg := n8n.LoadConfigFromEnv()
		if domain != "" {
			cfg.Domain = domain
		}
		if timezone != "" {
			cfg.Timezone = timezone
		}
		if dir != "" {
			cfg.InstallDir = dir
		}

		if interactive {
			if err := promptMissingSecrets(cfg); err != nil {
				return n8nctl_err.NewExpectedError(err)
			}
		}
		if err := cfg.Validate(); err != nil {
			return n8nctl_err.NewExpectedError(err)
		}

		logger.Info("Installing n8n",
			zap.String("domain", cfg.Domain),
			zap.String("timezone", cfg.Timezone),
			zap.String("dir", cfg.InstallDir))

		if err := docker.Preflight(rc); err != nil {
			return err
		}

		if configureDaemon {
			if err := docker.WriteDaemonConfig(rc, docker.DaemonConfigPath, docker.DefaultDaemonConfig()); err != nil {
				return n8nctl_err.Classify(n8nctl_err.CategorySystem, "daemon-config",
					"failed to write docker daemon configuration", err,
					"cat /etc/docker/daemon.json",
					"journalctl -u docker --no-pager -n 50")
			}
			if err := docker.RestartDaemon(rc); err != nil {
				return n8nctl_err.Classify(n8nctl_err.CategorySystem, "daemon-config",
					"docker daemon did not restart cleanly", err,
					"systemctl status docker",
					"journalctl -u docker --no-pager -n 50")
			}
		}

		if runHelper {
			if err := n8n.RunRemoteHelper(rc); err != nil {
				return n8nctl_err.Classify(n8nctl_err.CategoryNetwork, "remote-helper",
					"remote helper script failed", err,
					fmt.Sprintf("curl -fsSL %s", n8n.HelperScriptURL))
			}
		}

		compose, creds, err := n8n.Generate(rc, cfg)
		if err != nil {
			return err
		}

		if !skipPrefetch {
			prefetchImages(rc, compose.ImageRefs())
		}

		if err := n8n.WriteArtifacts(rc, cfg.InstallDir, compose, creds); err != nil {
			return err
		}

		applier := n8n.NewApplier(docker.NewCLIRunner())
		result, err := applier.Apply(rc, cfg.InstallDir)
		if err != nil {
			return n8nctl_err.Classify(n8nctl_err.CategorySystem, "apply",
				"failed to start services", err,
				fmt.Sprintf("docker compose -f %s/docker-compose.yml logs", cfg.InstallDir),
				"docker ps -a")
		}

		fmt.Printf("\nn8n installation complete\n")
		fmt.Printf("  Access URL:  %s\n", creds.AccessURL)
		fmt.Printf("  Credentials: %s/%s (mode 0600)\n", cfg.InstallDir, n8n.CredentialsFileName)
		if result.Ready {
			fmt.Printf("  Status:      reachable at %s\n", result.ProbeURL)
		} else {
			fmt.Printf("  Status:      not reachable yet; check with: n8nctl inspect n8n --dir %s\n", cfg.InstallDir)
		}
		return nil
	}),
}

// prefetchImages is best-effort: every outcome is logged, none is fatal.
func prefetchImages(rc *n8nctl_io.RuntimeContext, refs []string) {
	logger := otelzap.Ctx(rc.Ctx)

	puller, err := docker.NewSDKPuller(rc.Log)
	if err != nil {
		logger.Warn("Skipping image prefetch; docker client unavailable", zap.Error(err))
		return
	}
	defer func() { _ = puller.Close() }()

	report := docker.Prefetch(rc, puller, refs, 5*time.Minute)
	if failures := report.Failures(); len(failures) > 0 {
		logger.Warn("Some images were not prefetched; compose will pull them on first use",
			zap.Strings("images", failures))
	}
}

func promptMissingSecrets(cfg *n8n.DeploymentConfig) error {
	if cfg.DatabasePassword == "" {
		password, err := n8nctl_io.PromptSecurePassword("PostgreSQL password")
		if err != nil {
			return err
		}
		cfg.DatabasePassword = password
	}
	if cfg.AdminPassword == "" {
		password, err := n8nctl_io.PromptSecurePassword("n8n admin password")
		if err != nil {
			return err
		}
		cfg.AdminPassword = password
	}
	return nil
}

func init() {
	CreateN8NCmd.Flags().String("domain", "", "Domain name or address n8n is reached at (or DOMAIN_NAME)")
	CreateN8NCmd.Flags().String("timezone", "", "IANA timezone for workflow scheduling (or TIMEZONE; default UTC)")
	CreateN8NCmd.Flags().String("dir", "", "Install directory (or N8N_DIR; default "+n8n.DefaultInstallDir+")")
	CreateN8NCmd.Flags().Bool("interactive", false, "Prompt for missing passwords instead of requiring env vars")
	CreateN8NCmd.Flags().Bool("skip-prefetch", false, "Skip best-effort image prefetching")
	CreateN8NCmd.Flags().Bool("configure-daemon", false, "Write docker daemon DNS/log config and restart the daemon")
	CreateN8NCmd.Flags().Bool("run-helper", false, "Fetch and run the remote host setup helper script")
}
