package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/msg43/getreceipts-web/pkg/receipts"
)

func printSubmitResult(w io.Writer, res *receipts.SubmitResult) {
	fmt.Fprintln(w, "Claim created")
	fmt.Fprintf(w, "  Claim ID:     %s\n", res.ClaimID)
	fmt.Fprintf(w, "  Created by:   %s\n", res.CreatedBy)
	fmt.Fprintf(w, "  Auth method:  %s\n", res.AuthenticationMethod)
	fmt.Fprintf(w, "  API key name: %s\n", res.KeyName())
	fmt.Fprintf(w, "  URL:          %s\n", res.URL)
	fmt.Fprintf(w, "  Artifacts:    %s\n", res.KnowledgeArtifactsCount)
}

func printKnowledgeResult(w io.Writer, res *receipts.KnowledgeResult) {
	fmt.Fprintln(w, "Knowledge artifacts added")
	fmt.Fprintf(w, "  Claim ID:     %s\n", res.ClaimID)
	fmt.Fprintf(w, "  Created by:   %s\n", res.CreatedBy)
	fmt.Fprintf(w, "  API key name: %s\n", res.KeyName())
	fmt.Fprintf(w, "  Inserted:     %s\n", res.InsertedCount)
}

func printKnowledgeSet(w io.Writer, claimID string, set *receipts.KnowledgeSet) {
	fmt.Fprintf(w, "Knowledge for claim %s (%d artifacts)\n", claimID, set.Total())
	fmt.Fprintf(w, "  People:        %d\n", len(set.People))
	fmt.Fprintf(w, "  Jargon:        %d\n", len(set.Jargon))
	fmt.Fprintf(w, "  Mental models: %d\n", len(set.MentalModels))
	fmt.Fprintf(w, "  Relationships: %d\n", len(set.Relationships))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
