// ABOUTME: MCP prompt handlers for supervisor workflows
// ABOUTME: Builds a review briefing from the pending quality-check queue
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const ReviewBriefingPrompt = "review-briefing"

type PromptHandlers struct {
	supervisor *pipeline.Supervisor
}

func NewPromptHandlers(supervisor *pipeline.Supervisor) *PromptHandlers {
	return &PromptHandlers{supervisor: supervisor}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case ReviewBriefingPrompt:
		return h.reviewBriefing(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) reviewBriefing(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	var staffID int64
	if raw := args["staff_id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid staff_id: %w", err)
		}
		staffID = id
	}

	pending, err := h.supervisor.Pending(ctx, staffID, nil, 50)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Review these canvassing screenshots. For each one decide whether the OCR handle ")
	b.WriteString("belongs to the prospect and whether the message matches the stage template. ")
	b.WriteString("Answer approve or reject with a short reason.\n\n")
	if len(pending) == 0 {
		b.WriteString("The review queue is empty.\n")
	}
	for i, m := range pending {
		fmt.Fprintf(&b, "%d. message %s by staff %d, %s for @%s\n", i+1, m.ID, m.StaffID, models.StageLabel(m.Stage), m.ProspectHandle)
		fmt.Fprintf(&b, "   OCR handle: %s\n", m.OCRHandle)
		if m.OCRMessageSnippet != "" {
			fmt.Fprintf(&b, "   Message: %s\n", m.OCRMessageSnippet)
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Review briefing for %d pending screenshots", len(pending)),
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: b.String()}},
		},
	}, nil
}
