package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/msg43/getreceipts-web/internal/app"
	"github.com/spf13/cobra"
)

func newHistoryCommand(deps Deps) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List claims recorded in the local journal",
		Long:  "history lists journaled submissions, newest first. It requires STORAGE_TYPE=bbolt.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSubmitter(cmd.Context(), deps, func(s *app.Submitter) error {
				entries, err := s.History()
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(deps.Out, "No journaled submissions.")
					return nil
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}

				tw := tabwriter.NewWriter(deps.Out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SUBMITTED\tCLAIM ID\tURL\tCLAIM")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						e.SubmittedAt.Local().Format(time.DateTime), e.ClaimID, e.URL, truncate(e.ClaimText, 60))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 = all)")
	return cmd
}
