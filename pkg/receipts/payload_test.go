package receipts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadClaimYAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "claim.yaml", `
claim_text: Sugar is as addictive as cocaine.
topics: [nutrition]
supporters: [Robert Lustig]
opponents: [ADA]
sources:
  - type: paper
    title: Avena 2008
    url: https://example.com
provenance:
  producer_app: Factory
  version: 0.1.0
knowledge_artifacts:
  mental_models:
    - name: Reward loop
      relationships:
        inputs: [sugar]
`)

	claim, err := LoadClaim(path)
	require.NoError(t, err)
	assert.Equal(t, "Sugar is as addictive as cocaine.", claim.ClaimText)
	assert.Equal(t, []string{"nutrition"}, claim.Topics)
	require.Len(t, claim.Sources, 1)
	assert.Equal(t, SourcePaper, claim.Sources[0].Type)
	require.NotNil(t, claim.Provenance)
	assert.Equal(t, "Factory", claim.Provenance.ProducerApp)
	require.Len(t, claim.KnowledgeArtifacts[CategoryMentalModels], 1)
	assert.Equal(t, "Reward loop", claim.KnowledgeArtifacts[CategoryMentalModels][0]["name"])
}

func TestLoadClaimJSON(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "claim.json", `{"claim_text":"Coffee improves focus in adults","topics":["health"]}`)
	claim, err := LoadClaim(path)
	require.NoError(t, err)
	assert.Equal(t, "Coffee improves focus in adults", claim.ClaimText)
}

func TestLoadClaimRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "claim.json", `{not json`)
	_, err := LoadClaim(path)
	assert.Error(t, err)

	_, err = LoadClaim("")
	assert.Error(t, err)
}

func TestLoadArtifactsDropsEmptyCategories(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "artifacts.yml", `
people:
  - name: Dr. Michael Mann
    credibility_score: 0.95
"  ":
  - name: nobody
jargon: []
`)
	artifacts, err := LoadArtifacts(path)
	require.NoError(t, err)
	assert.Equal(t, 1, artifacts.Total())
	assert.NotContains(t, artifacts, "  ")
	assert.Equal(t, 0.95, artifacts[CategoryPeople][0]["credibility_score"])
}

func TestClaimKeyIsStable(t *testing.T) {
	t.Parallel()

	a, err := ClaimKey(ExampleClaim())
	require.NoError(t, err)
	b, err := ClaimKey(ExampleClaim())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := ExampleClaim()
	other.ClaimText += "!"
	c, err := ClaimKey(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
