// ABOUTME: Tests for the cobra command tree
// ABOUTME: Runs subcommands against a temp data directory with OCR disabled
package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harperreed/canvass/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canvassText = "Anda memulai obrolan dengan kopi_senja88\nHari ini 10:15\n" +
	"Halo kak, perkenalkan aku Bhanu dari STIQR, aplikasi kasirnya gratis tanpa biaya langganan"

func setupTestCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CANVASS_DB_PATH", filepath.Join(dir, "canvass.db"))
	t.Setenv("CANVASS_STORAGE_DIR", filepath.Join(dir, "blobs"))
	t.Setenv("CANVASS_TEMPLATES_FILE", "")
	t.Setenv("CANVASS_VOCABULARY_FILE", "")
	t.Setenv("OCR_ENGINE", "none")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestParseCommand(t *testing.T) {
	setupTestCLI(t)

	out, _, err := execute(t, canvassText, "parse", "--stage", "0", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"username": "kopi_senja88"`)
	assert.Contains(t, out, `"template_validation"`)

	_, _, err = execute(t, canvassText, "parse", "--stage", "9", "-")
	assert.Error(t, err)
}

func TestParseCommandFromFile(t *testing.T) {
	dir := setupTestCLI(t)
	path := filepath.Join(dir, "ocr.txt")
	require.NoError(t, os.WriteFile(path, []byte(canvassText), 0644))

	out, _, err := execute(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "kopi_senja88")
	assert.NotContains(t, out, "template_validation")

	_, _, err = execute(t, "", "parse", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestTemplatesCheck(t *testing.T) {
	setupTestCLI(t)

	out, stderr, err := execute(t, "", "templates", "check", filepath.Join("..", "templates", "default_templates.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "STAGE")
	assert.Empty(t, stderr)
}

func TestTemplatesCheckWarnsOnMissingStages(t *testing.T) {
	dir := setupTestCLI(t)
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`stages:
  - stage: 1
    name: Follow Up 1
    keywords: ["day 1"]
`), 0644))

	_, stderr, err := execute(t, "", "templates", "check", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "no template for Canvassing")
}

func TestUploadWithoutOCR(t *testing.T) {
	dir := setupTestCLI(t)
	image := filepath.Join(dir, "day0.png")
	require.NoError(t, os.WriteFile(image, []byte("png"), 0644))

	_, _, err := execute(t, "", "upload", "--staff", "7", "--category", "coffee_shop", image)
	var perr *pipeline.Error
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, pipeline.KindExtraction, perr.Kind)
}

func TestListCommandsOnEmptyDatabase(t *testing.T) {
	setupTestCLI(t)

	out, _, err := execute(t, "", "prospects")
	require.NoError(t, err)
	assert.Contains(t, out, "HANDLE")

	out, _, err = execute(t, "", "cycles", "--status", "aktif")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, _, err = execute(t, "", "cycles", "--status", "bogus")
	assert.Error(t, err)
}

func TestReviewRequiresSupervisor(t *testing.T) {
	setupTestCLI(t)

	_, _, err := execute(t, "", "review")
	assert.Error(t, err)
}
