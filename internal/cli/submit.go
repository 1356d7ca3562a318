package cli

import (
	"errors"
	"fmt"

	"github.com/msg43/getreceipts-web/internal/app"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"github.com/spf13/cobra"
)

func newSubmitCommand(deps Deps) *cobra.Command {
	var (
		file    string
		opts    app.SubmitOptions
		rawJSON bool
	)

	cmd := &cobra.Command{
		Use:   "submit --file claim.yaml",
		Short: "Submit a claim from a YAML or JSON file",
		Example: `  getreceipts submit --file claim.yaml
  getreceipts submit --file claim.json --sanitize --skip-seen`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			claim, err := receipts.LoadClaim(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return withSubmitter(ctx, deps, func(s *app.Submitter) error {
				res, err := s.Submit(ctx, claim, opts)
				if errors.Is(err, app.ErrAlreadySubmitted) {
					fmt.Fprintln(deps.Out, "Claim already submitted; skipped.")
					return nil
				}
				if err != nil {
					return err
				}
				if rawJSON {
					return printJSON(deps.Out, res.Raw)
				}
				printSubmitResult(deps.Out, res)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "claim file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&opts.Sanitize, "sanitize", false, "strip markup and clamp field lengths before sending")
	cmd.Flags().BoolVar(&opts.Enrich, "enrich", false, "fill missing source titles from the cited pages")
	cmd.Flags().BoolVar(&opts.SkipSeen, "skip-seen", false, "skip claims already recorded in the journal")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw response body")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
