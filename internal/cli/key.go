package cli

import (
	"fmt"

	"urlguard/internal/urlkey"

	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key URL [URL...]",
		Short: "Print the verdict cache key and normalized domain of URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, rawURL := range args {
				host, err := urlkey.NormalizeDomain(rawURL)
				if err != nil {
					host = "-"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", urlkey.DeriveKey(rawURL), host, rawURL)
			}
			return nil
		},
	}
}
