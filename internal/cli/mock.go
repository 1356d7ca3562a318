package cli

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/msg43/getreceipts-web/internal/mockapi"
	"github.com/spf13/cobra"
)

const defaultMockKey = "dev-key"

func newServeMockCommand(deps Deps) *cobra.Command {
	var (
		addr string
		keys []string
		rpm  int
	)
	cmd := &cobra.Command{
		Use:   "serve-mock",
		Short: "Run an in-memory stand-in of the receipts API",
		Long: `serve-mock serves POST /api/receipts, POST /api/knowledge/:claimId and
GET /api/knowledge/:claimId from memory until interrupted.

Accepted bearer tokens come from --key; when none are given the configured
GETRECEIPTS_API_KEY is accepted, falling back to "dev-key".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = deps.Config.MockAddr
			}
			accepted := make(map[string]string)
			for _, k := range keys {
				if k = strings.TrimSpace(k); k != "" {
					accepted[k] = "mock-key-" + fmt.Sprint(len(accepted)+1)
				}
			}
			if len(accepted) == 0 {
				k := deps.Config.APIKey
				if k == "" {
					k = defaultMockKey
				}
				accepted[k] = "mock-key"
			}

			gin.SetMode(gin.ReleaseMode)
			srv := mockapi.New(mockapi.Options{
				Keys:              accepted,
				RequestsPerMinute: rpm,
				Logger:            deps.Logger,
			})

			fmt.Fprintf(deps.Out, "Mock receipts API listening on %s (base URL http://%s/api)\n", addr, displayHost(addr))
			deps.Logger.InfoObj("mock api starting", "mock_config", map[string]any{
				"addr":                addr,
				"keys":                len(accepted),
				"requests_per_minute": rpm,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default MOCK_ADDR)")
	cmd.Flags().StringSliceVar(&keys, "key", nil, "accepted bearer token (repeatable)")
	cmd.Flags().IntVar(&rpm, "rpm", 0, "per-key limit on POST /receipts per minute (0 = unlimited)")
	return cmd
}

func displayHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
