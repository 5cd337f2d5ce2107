// ABOUTME: Canvassing MCP tool handlers
// ABOUTME: Implements find_prospects, list_cycles and suggest_stage
package handlers

import (
	"context"
	"fmt"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/pipeline"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type CanvassHandlers struct {
	store    *db.Store
	uploader *pipeline.Uploader
}

func NewCanvassHandlers(store *db.Store, uploader *pipeline.Uploader) *CanvassHandlers {
	return &CanvassHandlers{store: store, uploader: uploader}
}

type FindProspectsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Substring of the prospect handle"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
}

type ProspectOutput struct {
	ID            string `json:"id"`
	Handle        string `json:"handle"`
	Category      string `json:"category,omitempty"`
	Channel       string `json:"channel,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type FindProspectsOutput struct {
	Prospects []ProspectOutput `json:"prospects"`
}

func (h *CanvassHandlers) FindProspects(ctx context.Context, request *mcp.CallToolRequest, input FindProspectsInput) (*mcp.CallToolResult, FindProspectsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	prospects, err := h.store.FindProspects(ctx, input.Query, limit)
	if err != nil {
		return nil, FindProspectsOutput{}, fmt.Errorf("failed to find prospects: %w", err)
	}

	result := make([]ProspectOutput, len(prospects))
	for i, p := range prospects {
		result[i] = prospectToOutput(p)
	}
	return nil, FindProspectsOutput{Prospects: result}, nil
}

func prospectToOutput(p *models.Prospect) ProspectOutput {
	return ProspectOutput{
		ID:            p.ID.String(),
		Handle:        p.Handle,
		Category:      p.Category,
		Channel:       p.Channel,
		ContactNumber: p.ContactNumber,
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type ListCyclesInput struct {
	StaffID int64  `json:"staff_id,omitempty" jsonschema:"Only cycles owned by this staff member"`
	Status  string `json:"status,omitempty" jsonschema:"Only cycles in this status (active, ongoing, converted, rejected)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
}

type CycleOutput struct {
	ID               string `json:"id"`
	ProspectHandle   string `json:"prospect_handle"`
	StaffID          int64  `json:"staff_id"`
	Status           string `json:"status"`
	CurrentStage     int    `json:"current_stage"`
	NextAction       string `json:"next_action,omitempty"`
	NextFollowupDate string `json:"next_followup_date,omitempty"`
	MessageCount     int    `json:"message_count"`
}

type ListCyclesOutput struct {
	Cycles []CycleOutput `json:"cycles"`
}

func (h *CanvassHandlers) ListCycles(ctx context.Context, request *mcp.CallToolRequest, input ListCyclesInput) (*mcp.CallToolResult, ListCyclesOutput, error) {
	filter := db.CycleFilter{StaffID: input.StaffID, Limit: input.Limit}
	if filter.Limit == 0 {
		filter.Limit = 20
	}
	if input.Status != "" {
		status, err := models.ParseCycleStatus(input.Status)
		if err != nil {
			return nil, ListCyclesOutput{}, err
		}
		filter.Status = status
	}

	cycles, err := h.store.ListCycles(ctx, filter)
	if err != nil {
		return nil, ListCyclesOutput{}, fmt.Errorf("failed to list cycles: %w", err)
	}

	result := make([]CycleOutput, len(cycles))
	for i, c := range cycles {
		out := CycleOutput{
			ID:             c.ID.String(),
			ProspectHandle: c.ProspectHandle,
			StaffID:        c.StaffID,
			Status:         string(c.Status),
			CurrentStage:   c.CurrentStage,
			NextAction:     c.NextAction,
			MessageCount:   c.MessageCount,
		}
		if c.NextFollowupDate != nil {
			out.NextFollowupDate = c.NextFollowupDate.Format("2006-01-02")
		}
		result[i] = out
	}
	return nil, ListCyclesOutput{Cycles: result}, nil
}

type SuggestStageInput struct {
	StaffID int64 `json:"staff_id" jsonschema:"Staff member to suggest for (required)"`
}

func (h *CanvassHandlers) SuggestStage(ctx context.Context, request *mcp.CallToolRequest, input SuggestStageInput) (*mcp.CallToolResult, pipeline.Suggestion, error) {
	if input.StaffID <= 0 {
		return nil, pipeline.Suggestion{}, fmt.Errorf("staff_id is required")
	}
	s, err := h.uploader.SuggestStage(ctx, input.StaffID)
	if err != nil {
		return nil, pipeline.Suggestion{}, err
	}
	return nil, s, nil
}
