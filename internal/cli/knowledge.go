package cli

import (
	"github.com/msg43/getreceipts-web/internal/app"
	"github.com/msg43/getreceipts-web/pkg/receipts"
	"github.com/spf13/cobra"
)

func newKnowledgeCommand(deps Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Add or inspect knowledge artifacts of a claim",
	}
	cmd.AddCommand(newKnowledgeAddCommand(deps), newKnowledgeGetCommand(deps))
	return cmd
}

func newKnowledgeAddCommand(deps Deps) *cobra.Command {
	var (
		file    string
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "add <claim-id> --file artifacts.yaml",
		Short: "Attach knowledge artifacts to an existing claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifacts, err := receipts.LoadArtifacts(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			return withSubmitter(ctx, deps, func(s *app.Submitter) error {
				res, err := s.AddKnowledge(ctx, args[0], artifacts)
				if err != nil {
					return err
				}
				if rawJSON {
					return printJSON(deps.Out, res.Raw)
				}
				printKnowledgeResult(deps.Out, res)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "artifacts file (.yaml, .yml or .json)")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw response body")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newKnowledgeGetCommand(deps Deps) *cobra.Command {
	var rawJSON bool
	cmd := &cobra.Command{
		Use:   "get <claim-id>",
		Short: "Show the knowledge artifacts stored for a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSubmitter(ctx, deps, func(s *app.Submitter) error {
				set, err := s.FetchKnowledge(ctx, args[0])
				if err != nil {
					return err
				}
				if rawJSON {
					return printJSON(deps.Out, set)
				}
				printKnowledgeSet(deps.Out, args[0], set)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the artifacts as JSON")
	return cmd
}
