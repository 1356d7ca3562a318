package receipts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactCountDecodesAllShapes(t *testing.T) {
	t.Parallel()

	var n ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`4`), &n))
	assert.Equal(t, 4, n.Total)
	assert.Nil(t, n.ByCategory)
	assert.Equal(t, "4", n.String())

	var obj ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`{"people":2,"jargon":1}`), &obj))
	assert.Equal(t, 3, obj.Total)
	assert.Equal(t, "3 (jargon=1, people=2)", obj.String())

	var null ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`null`), &null))
	assert.Zero(t, null.Total)

	var quoted ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`"2"`), &quoted))
	assert.Equal(t, 2, quoted.Total)
	assert.Equal(t, "2", quoted.String())

	var odd ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`2.5`), &odd))
	assert.Zero(t, odd.Total)
	assert.Equal(t, "2.5", odd.String())
	raw, err := json.Marshal(odd)
	require.NoError(t, err)
	assert.JSONEq(t, `2.5`, string(raw))

	var word ArtifactCount
	require.NoError(t, json.Unmarshal([]byte(`"three"`), &word))
	assert.Equal(t, "three", word.String())

	var bad ArtifactCount
	assert.Error(t, bad.UnmarshalJSON([]byte(`{"people":`)))
}

func TestArtifactCountMarshalKeepsShape(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(ArtifactCount{Total: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `2`, string(raw))

	raw, err = json.Marshal(ArtifactCount{Total: 1, ByCategory: map[string]int{"people": 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"people":1}`, string(raw))
}

func TestKnowledgeArtifactsCounts(t *testing.T) {
	t.Parallel()

	k := ExampleClaim().KnowledgeArtifacts
	assert.Equal(t, 3, k.Total())
	assert.Equal(t, []string{CategoryJargon, CategoryMentalModels, CategoryPeople}, k.Categories())
	assert.Equal(t, map[string]int{CategoryPeople: 1, CategoryJargon: 1, CategoryMentalModels: 1}, k.Count())
}

func TestClaimJSONOmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Claim{ClaimText: "Sugar is as addictive as cocaine."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"claim_text":"Sugar is as addictive as cocaine."}`, string(raw))
}

func TestClaimJSONKeepsExplicitEmptyStances(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(ExampleClaim())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, []any{}, got["opponents"])
	assert.Equal(t, []any{"97% of climate scientists"}, got["supporters"])
}

func TestKeyNameDefault(t *testing.T) {
	t.Parallel()

	empty := ""
	name := "chipper"
	assert.Equal(t, DefaultAPIKeyName, (&SubmitResult{}).KeyName())
	assert.Equal(t, DefaultAPIKeyName, (&SubmitResult{APIKeyName: &empty}).KeyName())
	assert.Equal(t, "chipper", (&KnowledgeResult{APIKeyName: &name}).KeyName())
}
