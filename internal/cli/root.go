// Package cli implements urlguardctl, the operator tool that evaluates URLs
// and synchronizes the blacklist without going through the HTTP API.
package cli

import (
	"context"
	"fmt"

	"urlguard/internal/app/bootstrap"
	"urlguard/internal/config"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	settingsPath string
	debug        bool
}

func NewRoot(version string) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "urlguardctl",
		Short:         "urlguardctl: inspect and maintain the URL reputation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if opts.debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate("urlguardctl {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.settingsPath, "settings", "data/settings.json", "Path to the settings file")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(newCheckCmd(opts))
	cmd.AddCommand(newSyncCmd(opts))
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newTokenCmd())

	return cmd
}

// setup loads settings and builds the same components the server uses.
func (o *rootOptions) setup(ctx context.Context) (*bootstrap.Components, error) {
	config.SetSettingsPath(o.settingsPath)
	if err := config.ReadSettings(); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	return bootstrap.Setup(ctx, config.GetConfig(), bootstrap.SecretsFromEnv())
}
