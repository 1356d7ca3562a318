package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/msg43/getreceipts-web/internal/app"
	"github.com/msg43/getreceipts-web/pkg/receipts"
)

const producerApp = "getreceipts-cli"

func runSmoke(ctx context.Context, deps Deps, strict bool) error {
	out := deps.Out
	fmt.Fprintln(out, "GetReceipts API smoke check")
	fmt.Fprintf(out, "API URL: %s\n", deps.Config.APIURL)
	fmt.Fprintf(out, "API Key set: %s\n", yesNo(deps.Config.APIKey != ""))

	if deps.Config.APIKey == "" {
		fmt.Fprintln(out, "WARNING: GETRECEIPTS_API_KEY is not set; skipping live submission.")
		fmt.Fprintln(out, "Set GETRECEIPTS_API_KEY (and optionally GETRECEIPTS_API_URL) to run the check.")
		return nil
	}

	claim := receipts.ExampleClaim()
	claim.Provenance = &receipts.Provenance{
		ProducerApp: producerApp,
		Version:     Version,
		SessionID:   uuid.NewString(),
	}

	err := withSubmitter(ctx, deps, func(s *app.Submitter) error {
		res, err := s.Submit(ctx, claim, app.SubmitOptions{})
		if err != nil {
			return err
		}
		printSubmitResult(out, res)
		return nil
	})
	if err != nil {
		fmt.Fprintf(out, "FAIL: smoke submission failed: %v\n", err)
		deps.Logger.ErrorObj("smoke submission failed", "error", err.Error())
		if strict {
			return err
		}
		return nil
	}
	fmt.Fprintln(out, "PASS: smoke submission succeeded")
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
