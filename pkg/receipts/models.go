package receipts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Known knowledge artifact categories. Other category names are passed through untouched.
const (
	CategoryPeople             = "people"
	CategoryJargon             = "jargon"
	CategoryMentalModels       = "mental_models"
	CategoryClaimRelationships = "claim_relationships"
)

// Source types accepted by the receipts API.
const (
	SourcePaper   = "paper"
	SourceArticle = "article"
	SourceVideo   = "video"
	SourceOrg     = "org"
	SourceBook    = "book"
	SourceReport  = "report"
)

// Claim is an RF-1 receipt: a factual assertion plus its sources, stances and
// optional knowledge artifacts.
type Claim struct {
	ClaimText          string             `json:"claim_text" yaml:"claim_text"`
	ClaimLong          string             `json:"claim_long,omitempty" yaml:"claim_long"`
	Topics             []string           `json:"topics,omitempty" yaml:"topics"`
	Sources            []Source           `json:"sources,omitempty" yaml:"sources"`
	Supporters         []string           `json:"supporters,omitzero" yaml:"supporters"`
	Opponents          []string           `json:"opponents,omitzero" yaml:"opponents"`
	Factions           []string           `json:"factions,omitempty" yaml:"factions"`
	Provenance         *Provenance        `json:"provenance,omitempty" yaml:"provenance"`
	KnowledgeArtifacts KnowledgeArtifacts `json:"knowledge_artifacts,omitempty" yaml:"knowledge_artifacts"`
}

// Source is a citation backing a claim.
type Source struct {
	Type  string `json:"type,omitempty" yaml:"type"`
	Title string `json:"title,omitempty" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url"`
	DOI   string `json:"doi,omitempty" yaml:"doi"`
	Venue string `json:"venue,omitempty" yaml:"venue"`
	Date  string `json:"date,omitempty" yaml:"date"`
}

// Provenance identifies the producer of a receipt.
type Provenance struct {
	ProducerApp string `json:"producer_app,omitempty" yaml:"producer_app"`
	Version     string `json:"version,omitempty" yaml:"version"`
	SessionID   string `json:"session_id,omitempty" yaml:"session_id"`
}

// Artifact is a single category-specific record. Fields are heterogeneous
// (bios, definitions, nested relationship maps) and only the server asserts shape.
type Artifact map[string]any

// KnowledgeArtifacts maps a category name to its records.
type KnowledgeArtifacts map[string][]Artifact

// Count returns the number of records per non-empty category.
func (k KnowledgeArtifacts) Count() map[string]int {
	out := make(map[string]int, len(k))
	for cat, items := range k {
		if len(items) > 0 {
			out[cat] = len(items)
		}
	}
	return out
}

// Total returns the number of records across all categories.
func (k KnowledgeArtifacts) Total() int {
	n := 0
	for _, items := range k {
		n += len(items)
	}
	return n
}

// Categories returns the category names in sorted order.
func (k KnowledgeArtifacts) Categories() []string {
	out := make([]string, 0, len(k))
	for cat := range k {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// ArtifactCount is the server's artifact tally. Depending on the deployment it is
// either a bare integer or an object keyed by category; both decode here. Any
// other shape is kept in Raw so an accepted submission never fails on it.
type ArtifactCount struct {
	Total      int
	ByCategory map[string]int
	Raw        any
}

// UnmarshalJSON accepts a number, an object of per-category numbers, or null.
// Numeric strings count as numbers.
func (c *ArtifactCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ArtifactCount{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode artifact count: %w", err)
	}

	if obj, ok := v.(map[string]any); ok {
		byCat := make(map[string]int, len(obj))
		total := 0
		for cat, val := range obj {
			n, ok := countValue(val)
			if !ok {
				*c = ArtifactCount{Raw: v}
				return nil
			}
			byCat[cat] = n
			total += n
		}
		*c = ArtifactCount{Total: total, ByCategory: byCat}
		return nil
	}

	if n, ok := countValue(v); ok {
		*c = ArtifactCount{Total: n}
		if _, isString := v.(string); isString {
			c.Raw = v
		}
		return nil
	}
	*c = ArtifactCount{Raw: v}
	return nil
}

func countValue(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

// MarshalJSON writes the same shape that was decoded.
func (c ArtifactCount) MarshalJSON() ([]byte, error) {
	if c.Raw != nil {
		return json.Marshal(c.Raw)
	}
	if c.ByCategory != nil {
		return json.Marshal(c.ByCategory)
	}
	return json.Marshal(c.Total)
}

// String renders the tally for humans, e.g. "3 (jargon=1, people=2)".
func (c ArtifactCount) String() string {
	if c.Raw != nil && c.Total == 0 && c.ByCategory == nil {
		return fmt.Sprint(c.Raw)
	}
	if len(c.ByCategory) == 0 {
		return fmt.Sprintf("%d", c.Total)
	}
	cats := make([]string, 0, len(c.ByCategory))
	for cat := range c.ByCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var b bytes.Buffer
	fmt.Fprintf(&b, "%d (", c.Total)
	for i, cat := range cats {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", cat, c.ByCategory[cat])
	}
	b.WriteString(")")
	return b.String()
}

// DefaultAPIKeyName is reported when the server omits api_key_name.
const DefaultAPIKeyName = "N/A"

// SubmitResult is the decoded body of a successful POST /receipts.
type SubmitResult struct {
	ClaimID                 string        `json:"claim_id,omitempty"`
	URL                     string        `json:"url"`
	BadgeURL                string        `json:"badge_url,omitempty"`
	CreatedBy               string        `json:"created_by"`
	AuthenticationMethod    string        `json:"authentication_method"`
	APIKeyName              *string       `json:"api_key_name,omitempty"`
	KnowledgeArtifactsCount ArtifactCount `json:"knowledge_artifacts_count"`

	// Raw is the full response body as decoded JSON.
	Raw map[string]any `json:"-"`
}

// KeyName returns the API key name or DefaultAPIKeyName when absent.
func (r *SubmitResult) KeyName() string {
	return keyNameOrDefault(r.APIKeyName)
}

func (r *SubmitResult) validate() error {
	return requireFields(map[string]string{"created_by": r.CreatedBy, "url": r.URL})
}

// KnowledgeResult is the decoded body of a successful POST /knowledge/{claimId}.
type KnowledgeResult struct {
	Message              string        `json:"message,omitempty"`
	ClaimID              string        `json:"claim_id,omitempty"`
	CreatedBy            string        `json:"created_by"`
	AuthenticationMethod string        `json:"authentication_method,omitempty"`
	APIKeyName           *string       `json:"api_key_name,omitempty"`
	InsertedCount        ArtifactCount `json:"inserted_count"`

	Raw map[string]any `json:"-"`
}

// KeyName returns the API key name or DefaultAPIKeyName when absent.
func (r *KnowledgeResult) KeyName() string {
	return keyNameOrDefault(r.APIKeyName)
}

func (r *KnowledgeResult) validate() error {
	return requireFields(map[string]string{"created_by": r.CreatedBy})
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, v := range fields {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("response is missing %s", strings.Join(missing, ", "))
}

// KnowledgeSet is the body of GET /knowledge/{claimId}.
type KnowledgeSet struct {
	People        []Artifact `json:"people"`
	Jargon        []Artifact `json:"jargon"`
	MentalModels  []Artifact `json:"mental_models"`
	Relationships []Artifact `json:"relationships"`
}

// Total returns the number of records across all categories.
func (s *KnowledgeSet) Total() int {
	if s == nil {
		return 0
	}
	return len(s.People) + len(s.Jargon) + len(s.MentalModels) + len(s.Relationships)
}

func keyNameOrDefault(name *string) string {
	if name == nil || *name == "" {
		return DefaultAPIKeyName
	}
	return *name
}
