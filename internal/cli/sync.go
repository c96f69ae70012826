package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch the blacklist feed once and replace the stored blacklist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := root.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer components.Close()

			if components.Syncer == nil {
				return errors.New("no blacklist source configured")
			}

			outcome, err := components.Syncer.Sync(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "synced %d domains from %s (%d rows, %d skipped) in %s\n",
				outcome.Entries, outcome.Source, outcome.Rows, outcome.Skipped, outcome.Duration)
			return nil
		},
	}
}
