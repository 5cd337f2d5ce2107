// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Runs each handler against a temp database seeded through the upload pipeline
package handlers

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/ocr"
	"github.com/harperreed/canvass/pipeline"
	"github.com/harperreed/canvass/resolve"
	"github.com/harperreed/canvass/storage"
	"github.com/harperreed/canvass/templates"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canvassText = "Anda memulai obrolan dengan kopi_senja88\nHari ini 10:15\n" +
	"Halo kak, perkenalkan aku Bhanu dari STIQR, aplikasi kasirnya gratis tanpa biaya langganan"

type stubEngine struct{}

func (stubEngine) ExtractText(context.Context, []byte, string) (string, error) {
	return canvassText, nil
}

type env struct {
	store      *db.Store
	uploader   *pipeline.Uploader
	supervisor *pipeline.Supervisor
	parser     *ocr.Parser
	matcher    *templates.Matcher
}

func setupTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()

	sqlDB, err := db.OpenDatabase(filepath.Join(dir, "canvass.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	store := db.NewStore(sqlDB)

	blobs, err := storage.NewDiskStore(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	vocab := ocr.DefaultVocabulary()
	matcher := templates.NewMatcher(templates.DefaultTemplateSet())
	parser := ocr.NewParser(ocr.NewExtractor(vocab), ocr.NewSegmenter(vocab, matcher), now)

	return &env{
		store: store,
		uploader: pipeline.NewUploader(pipeline.Deps{
			Store:    store,
			Blobs:    blobs,
			Engine:   stubEngine{},
			Parser:   parser,
			Scorer:   matcher,
			Resolver: resolve.New(store, nil, now),
			Now:      now,
		}, pipeline.Options{}),
		supervisor: pipeline.NewSupervisor(store, nil),
		parser:     parser,
		matcher:    matcher,
	}
}

func (e *env) seed(t *testing.T) *pipeline.UploadResult {
	t.Helper()
	res, err := e.uploader.Upload(context.Background(), pipeline.UploadRequest{
		StaffID:  7,
		Category: "coffee_shop",
		Filename: "day0.png",
		Image:    []byte("png"),
	})
	require.NoError(t, err)
	return res
}

func intp(i int) *int { return &i }

func TestParseOCRText(t *testing.T) {
	e := setupTestEnv(t)
	h := NewOCRHandlers(e.parser, e.matcher)

	_, out, err := h.ParseOCRText(context.Background(), nil, ParseOCRTextInput{Text: canvassText, Stage: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, "kopi_senja88", out.Username)
	assert.Equal(t, "2026-03-05", out.Date)
	require.NotNil(t, out.DetectedStage)
	assert.Equal(t, 0, *out.DetectedStage)

	_, _, err = h.ParseOCRText(context.Background(), nil, ParseOCRTextInput{})
	assert.Error(t, err)
	_, _, err = h.ParseOCRText(context.Background(), nil, ParseOCRTextInput{Text: "x", Stage: intp(9)})
	assert.Error(t, err)
}

func TestValidateStageText(t *testing.T) {
	e := setupTestEnv(t)
	h := NewOCRHandlers(e.parser, e.matcher)

	_, v, err := h.ValidateStageText(context.Background(), nil, ValidateStageTextInput{
		Text:  "*Day 1* masuk 2026 nanti, biaya operasional F&B makin naik",
		Stage: 1,
	})
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, v, err = h.ValidateStageText(context.Background(), nil, ValidateStageTextInput{Text: "halo", Stage: 3})
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestFindProspectsAndListCycles(t *testing.T) {
	e := setupTestEnv(t)
	e.seed(t)
	h := NewCanvassHandlers(e.store, e.uploader)
	ctx := context.Background()

	_, found, err := h.FindProspects(ctx, nil, FindProspectsInput{Query: "senja"})
	require.NoError(t, err)
	require.Len(t, found.Prospects, 1)
	assert.Equal(t, "kopi_senja88", found.Prospects[0].Handle)

	_, found, err = h.FindProspects(ctx, nil, FindProspectsInput{Query: "warung"})
	require.NoError(t, err)
	assert.Empty(t, found.Prospects)

	_, cycles, err := h.ListCycles(ctx, nil, ListCyclesInput{StaffID: 7, Status: "aktif"})
	require.NoError(t, err)
	require.Len(t, cycles.Cycles, 1)
	assert.Equal(t, "kopi_senja88", cycles.Cycles[0].ProspectHandle)
	assert.Equal(t, "2026-03-06", cycles.Cycles[0].NextFollowupDate)
	assert.Equal(t, 1, cycles.Cycles[0].MessageCount)

	_, _, err = h.ListCycles(ctx, nil, ListCyclesInput{Status: "bogus"})
	assert.Error(t, err)
}

func TestSuggestStageTool(t *testing.T) {
	e := setupTestEnv(t)
	h := NewCanvassHandlers(e.store, e.uploader)

	_, s, err := h.SuggestStage(context.Background(), nil, SuggestStageInput{StaffID: 7})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Stage)

	_, _, err = h.SuggestStage(context.Background(), nil, SuggestStageInput{})
	assert.Error(t, err)
}

func readResource(t *testing.T, h *ResourceHandlers, uri string) (*mcp.ReadResourceResult, error) {
	t.Helper()
	return h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
}

func TestReadResources(t *testing.T) {
	e := setupTestEnv(t)
	res := e.seed(t)
	h := NewResourceHandlers(e.store, e.matcher.Set)

	out, err := readResource(t, h, TemplatesURI)
	require.NoError(t, err)
	require.Len(t, out.Contents, 1)
	var stages []templates.StageTemplate
	require.NoError(t, json.Unmarshal([]byte(out.Contents[0].Text), &stages))
	assert.Len(t, stages, 8)

	out, err = readResource(t, h, "canvass://cycles/"+res.Cycle.ID.String())
	require.NoError(t, err)
	var history cycleHistory
	require.NoError(t, json.Unmarshal([]byte(out.Contents[0].Text), &history))
	assert.Equal(t, res.Cycle.ID, history.Cycle.ID)
	assert.Len(t, history.Messages, 1)

	_, err = readResource(t, h, "canvass://cycles/not-a-uuid")
	assert.Error(t, err)
	_, err = readResource(t, h, "canvass://prospects")
	assert.Error(t, err)
}

func TestReviewBriefingPrompt(t *testing.T) {
	e := setupTestEnv(t)
	e.seed(t)
	h := NewPromptHandlers(e.supervisor)

	out, err := h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: ReviewBriefingPrompt, Arguments: map[string]string{"staff_id": "7"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	text := out.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "@kopi_senja88")
	assert.Contains(t, text, "Canvassing")

	_, err = h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: "nope"},
	})
	assert.Error(t, err)
}
