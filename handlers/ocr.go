// ABOUTME: OCR MCP tool handlers
// ABOUTME: Implements parse_ocr_text and validate_stage_text over raw screenshot text
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/ocr"
	"github.com/harperreed/canvass/templates"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type OCRHandlers struct {
	parser *ocr.Parser
	scorer templates.Scorer
}

func NewOCRHandlers(parser *ocr.Parser, scorer templates.Scorer) *OCRHandlers {
	return &OCRHandlers{parser: parser, scorer: scorer}
}

type ParseOCRTextInput struct {
	Text  string `json:"text" jsonschema:"Raw OCR text of a chat screenshot (required)"`
	Stage *int   `json:"stage,omitempty" jsonschema:"Expected stage 0-7, used to pick the right message segment"`
}

type ParseOCRTextOutput struct {
	Username       string `json:"username,omitempty"`
	Strategy       string `json:"strategy,omitempty"`
	MessageSnippet string `json:"message_snippet,omitempty"`
	Date           string `json:"date,omitempty"`
	DetectedStage  *int   `json:"detected_stage,omitempty"`
}

func (h *OCRHandlers) ParseOCRText(_ context.Context, request *mcp.CallToolRequest, input ParseOCRTextInput) (*mcp.CallToolResult, ParseOCRTextOutput, error) {
	if input.Text == "" {
		return nil, ParseOCRTextOutput{}, fmt.Errorf("text is required")
	}
	if input.Stage != nil && !models.ValidStage(*input.Stage) {
		return nil, ParseOCRTextOutput{}, fmt.Errorf("stage must be between 0 and %d", models.MaxStage)
	}

	r := h.parser.Parse(input.Text, input.Stage)
	out := ParseOCRTextOutput{
		Username:       r.Username,
		Strategy:       r.Strategy,
		MessageSnippet: r.MessageSnippet,
	}
	if r.Date != nil {
		out.Date = r.Date.Format("2006-01-02")
	}
	if r.MessageSnippet != "" {
		if stage, ok := h.scorer.DetectStage(r.MessageSnippet); ok {
			out.DetectedStage = &stage
		}
	}
	return nil, out, nil
}

type ValidateStageTextInput struct {
	Text  string `json:"text" jsonschema:"Message text to check (required)"`
	Stage int    `json:"stage" jsonschema:"Stage 0-7 the text should match (required)"`
}

func (h *OCRHandlers) ValidateStageText(_ context.Context, request *mcp.CallToolRequest, input ValidateStageTextInput) (*mcp.CallToolResult, templates.Validation, error) {
	if input.Text == "" {
		return nil, templates.Validation{}, fmt.Errorf("text is required")
	}
	if !models.ValidStage(input.Stage) {
		return nil, templates.Validation{}, fmt.Errorf("stage must be between 0 and %d", models.MaxStage)
	}
	return nil, h.scorer.ValidateForStage(input.Text, input.Stage), nil
}
