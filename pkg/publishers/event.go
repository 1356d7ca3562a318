package publishers

import (
	"time"

	"github.com/msg43/getreceipts-web/pkg/receipts"
)

// Event kinds.
const (
	KindClaimSubmitted = "claim.submitted"
	KindKnowledgeAdded = "knowledge.added"
)

// Event is the payload published after a successful API call.
type Event struct {
	Kind                 string    `json:"kind"`
	ClaimID              string    `json:"claim_id"`
	URL                  string    `json:"url,omitempty"`
	CreatedBy            string    `json:"created_by,omitempty"`
	AuthenticationMethod string    `json:"authentication_method,omitempty"`
	ArtifactCount        int       `json:"artifact_count"`
	ClaimText            string    `json:"claim_text,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// NewClaimSubmittedEvent describes a claim the API accepted.
func NewClaimSubmittedEvent(claim receipts.Claim, res *receipts.SubmitResult) Event {
	evt := Event{
		Kind:       KindClaimSubmitted,
		ClaimText:  claim.ClaimText,
		OccurredAt: time.Now().UTC(),
	}
	if res != nil {
		evt.ClaimID = res.ClaimID
		evt.URL = res.URL
		evt.CreatedBy = res.CreatedBy
		evt.AuthenticationMethod = res.AuthenticationMethod
		evt.ArtifactCount = res.KnowledgeArtifactsCount.Total
	}
	return evt
}

// NewKnowledgeAddedEvent describes artifacts attached to an existing claim.
func NewKnowledgeAddedEvent(claimID string, res *receipts.KnowledgeResult) Event {
	evt := Event{
		Kind:       KindKnowledgeAdded,
		ClaimID:    claimID,
		OccurredAt: time.Now().UTC(),
	}
	if res != nil {
		if res.ClaimID != "" {
			evt.ClaimID = res.ClaimID
		}
		evt.CreatedBy = res.CreatedBy
		evt.AuthenticationMethod = res.AuthenticationMethod
		evt.ArtifactCount = res.InsertedCount.Total
	}
	return evt
}

// attributes are the routing attributes attached to queue and topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_kind": e.Kind,
		"claim_id":   e.ClaimID,
	}
}
