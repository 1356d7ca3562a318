package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/msg43/getreceipts-web/internal/config"
	"github.com/msg43/getreceipts-web/internal/mockapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*mockapi.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := mockapi.New(mockapi.Options{Keys: map[string]string{"good-key": "ci-key"}})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv.URL + "/api"
}

func testConfig(apiURL, apiKey string) *config.Config {
	return &config.Config{
		AppName:                "test",
		APIKey:                 apiKey,
		APIURL:                 apiURL,
		RequestTimeout:         5 * time.Second,
		StorageType:            "none",
		JournalTTL:             time.Hour,
		JournalCleanupInterval: time.Hour,
		MockAddr:               ":0",
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand(Deps{Config: cfg, Out: &out, Err: &out})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSmokeWithoutKeyWarnsAndSucceeds(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, testConfig(url, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "API URL: "+url)
	assert.Contains(t, out, "API Key set: No")
	assert.Contains(t, out, "WARNING")
	assert.Zero(t, api.ClaimCount())
}

func TestSmokeWithKeySubmitsExampleClaim(t *testing.T) {
	api, url := newTestAPI(t)

	out, err := execute(t, testConfig(url, "good-key"))
	require.NoError(t, err)
	assert.Contains(t, out, "API Key set: Yes")
	assert.Contains(t, out, "Claim created")
	assert.Contains(t, out, "API key name: ci-key")
	assert.Contains(t, out, "PASS")
	assert.Equal(t, 1, api.ClaimCount())
}

func TestSmokeFailureReportsAndOptionallyFails(t *testing.T) {
	_, url := newTestAPI(t)
	cfg := testConfig(url, "bad-key")

	out, err := execute(t, cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "401")

	_, err = execute(t, cfg, "--strict")
	assert.Error(t, err)
}

func TestSubmitAndKnowledgeCommands(t *testing.T) {
	api, url := newTestAPI(t)
	cfg := testConfig(url, "good-key")
	dir := t.TempDir()

	claimFile := filepath.Join(dir, "claim.yaml")
	require.NoError(t, os.WriteFile(claimFile, []byte(`
claim_text: "Coral reefs are bleaching more often"
topics: [oceans]
`), 0o644))

	out, err := execute(t, cfg, "submit", "--file", claimFile, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"claim_id"`)
	require.Equal(t, 1, api.ClaimCount())

	claimID := extractClaimID(t, out)

	artFile := filepath.Join(dir, "artifacts.json")
	require.NoError(t, os.WriteFile(artFile, []byte(`{"jargon":[{"term":"bleaching"}]}`), 0o644))

	out, err = execute(t, cfg, "knowledge", "add", claimID, "--file", artFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Knowledge artifacts added")
	assert.Contains(t, out, "jargon=1")

	out, err = execute(t, cfg, "knowledge", "get", claimID)
	require.NoError(t, err)
	assert.Contains(t, out, "Jargon:        1")
}

func TestSubmitRequiresFile(t *testing.T) {
	_, url := newTestAPI(t)
	_, err := execute(t, testConfig(url, "good-key"), "submit")
	assert.Error(t, err)
}

func TestHistoryWithoutJournal(t *testing.T) {
	_, url := newTestAPI(t)
	out, err := execute(t, testConfig(url, "good-key"), "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No journaled submissions.")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, testConfig("http://unused", ""), "version")
	require.NoError(t, err)
	assert.Equal(t, "getreceipts "+Version+"\n", out)
}

func extractClaimID(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, `"claim_id":`) {
			v := strings.TrimPrefix(line, `"claim_id":`)
			return strings.Trim(strings.TrimSpace(v), `",`)
		}
	}
	t.Fatalf("claim_id not found in %q", out)
	return ""
}
