package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spider-crawler/siteaudit/internal/engine"
	"github.com/spider-crawler/siteaudit/internal/observability"
	"github.com/spider-crawler/siteaudit/internal/report"
	"github.com/spider-crawler/siteaudit/internal/testutil"
)

// run executes the command line and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.BuildTestSite()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "out", "report.json")
	xlsxPath := filepath.Join(dir, "report.xlsx")
	dbPath := filepath.Join(dir, "history.db")

	out, err := run(t, "analyze", ts.URL()+"/",
		"--category", "meta_tags,alt_text",
		"--keywords", "audits",
		"--output", jsonPath,
		"--xlsx", xlsxPath,
		"--save",
		"--db", dbPath,
		"--log-level", "error",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Overall score:")
	assert.Contains(t, out, "meta_tags")
	assert.Contains(t, out, "alt_text")
	assert.Contains(t, out, "Saved report")

	f, err := os.Open(jsonPath)
	require.NoError(t, err)
	defer f.Close()
	rep, err := report.ReadJSON(f)
	require.NoError(t, err)
	assert.Len(t, rep.Categories, 2)

	_, err = os.Stat(xlsxPath)
	assert.NoError(t, err)

	out, err = run(t, "history", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, rep.ID)

	out, err = run(t, "history", "--db", dbPath, "--id", rep.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"id": "`+rep.ID+`"`)
}

func TestAnalyzeJSONOutput(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()
	ts.BuildTestSite()

	out, err := run(t, "analyze", ts.URL()+"/", "--category", "canonical", "--json", "--log-level", "error")
	require.NoError(t, err)

	rep, err := report.ReadJSON(bytes.NewBufferString(out))
	require.NoError(t, err)
	require.Len(t, rep.Categories, 1)
	assert.Equal(t, "canonical", string(rep.Categories[0].Category))
}

func TestAnalyzeInvalidTarget(t *testing.T) {
	_, err := run(t, "analyze", "not a url", "--log-level", "error")
	assert.ErrorIs(t, err, engine.ErrInvalidTarget)
}

func TestAnalyzeUnknownCategory(t *testing.T) {
	_, err := run(t, "analyze", "https://example.com/", "--category", "speed", "--log-level", "error")
	assert.Error(t, err)
}

func TestHistoryEmpty(t *testing.T) {
	out, err := run(t, "history", "--db", filepath.Join(t.TempDir(), "empty.db"), "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "No reports stored.")
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "siteaudit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("render:\n  mode: svg\n"), 0o644))

	_, err := run(t, "history", "--config", cfgPath, "--db", filepath.Join(dir, "h.db"))
	assert.ErrorContains(t, err, "render.mode")

	t.Setenv("SITEAUDIT_FETCH_MAX_BODY_BYTES", "-1")
	_, err = run(t, "history", "--db", filepath.Join(dir, "h.db"))
	assert.ErrorContains(t, err, "max_body_bytes")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "history", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "error reading config file")
}
