// Package cli implements the getreceipts command tree.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/msg43/getreceipts-web/internal/app"
	"github.com/msg43/getreceipts-web/internal/config"
	"github.com/msg43/getreceipts-web/internal/logger"
	"github.com/spf13/cobra"
)

// Version is overridden at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "0.1.0-dev"

// Deps are the runtime values shared by every command.
type Deps struct {
	Config *config.Config
	Logger logger.Logger
	Out    io.Writer
	Err    io.Writer
	// NewSubmitter defaults to app.NewSubmitter.
	NewSubmitter func(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Submitter, error)
}

func (d *Deps) normalize() {
	if d.Logger == nil {
		d.Logger = logger.NopLogger{}
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Err == nil {
		d.Err = os.Stderr
	}
	if d.NewSubmitter == nil {
		d.NewSubmitter = app.NewSubmitter
	}
}

// NewRootCommand builds the command tree. Running it without a subcommand
// performs the smoke check.
func NewRootCommand(deps Deps) *cobra.Command {
	deps.normalize()

	var strict bool
	root := &cobra.Command{
		Use:   "getreceipts",
		Short: "Client for the GetReceipts claims API",
		Long: `getreceipts submits RF-1 claims and knowledge artifacts to a GetReceipts server.

Without a subcommand it runs a smoke check: it prints the configured API URL,
and when GETRECEIPTS_API_KEY is set submits one illustrative claim.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSmoke(cmd.Context(), deps, strict)
		},
	}
	root.SetOut(deps.Out)
	root.SetErr(deps.Err)
	root.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the smoke submission fails")

	root.AddCommand(
		newSubmitCommand(deps),
		newKnowledgeCommand(deps),
		newHistoryCommand(deps),
		newServeMockCommand(deps),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("getreceipts %s\n", Version)
		},
	}
}

// withSubmitter builds a submitter for one command invocation and closes it afterwards.
func withSubmitter(ctx context.Context, deps Deps, fn func(*app.Submitter) error) error {
	s, err := deps.NewSubmitter(ctx, deps.Config, deps.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			deps.Logger.WarnObj("submitter close failed", "error", cerr.Error())
		}
	}()
	return fn(s)
}
