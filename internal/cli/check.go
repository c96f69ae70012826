package cli

import (
	"encoding/json"
	"fmt"

	"urlguard/internal/app/bootstrap"
	"urlguard/internal/domain"
	"urlguard/internal/reputation"

	"github.com/spf13/cobra"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var (
		asJSON   bool
		noRemote bool
	)

	cmd := &cobra.Command{
		Use:   "check URL [URL...]",
		Short: "Evaluate URLs against the blacklist, cache and remote authority",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			components, err := root.setup(cmd.Context())
			if err != nil {
				return err
			}
			defer components.Close()

			evaluator := components.Evaluator
			if noRemote {
				evaluator = withoutRemote(components)
			}

			out := cmd.OutOrStdout()
			for _, rawURL := range args {
				result := evaluator.Evaluate(cmd.Context(), rawURL)
				if asJSON {
					if err := json.NewEncoder(out).Encode(checkLine{URL: rawURL, EvaluationResult: result}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintln(out, formatResult(rawURL, result))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per URL")
	cmd.Flags().BoolVar(&noRemote, "no-remote", false, "Only consult the blacklist and the verdict cache")
	return cmd
}

type checkLine struct {
	URL string `json:"url"`
	domain.EvaluationResult
}

func formatResult(rawURL string, result domain.EvaluationResult) string {
	if result.Safe {
		return "SAFE     " + rawURL
	}
	return fmt.Sprintf("BLOCKED  %s (%s: %s, %s)", rawURL, result.Source, result.Category, result.Description)
}

func withoutRemote(c *bootstrap.Components) *reputation.Evaluator {
	return reputation.NewEvaluator(c.Blacklist, c.Cache, nil)
}
