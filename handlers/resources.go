// ABOUTME: MCP resource handlers exposing canvassing data
// ABOUTME: Serves the active stage templates and cycle histories via canvass:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/templates"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	TemplatesURI     = "canvass://templates"
	CycleURITemplate = "canvass://cycles/{id}"
)

type ResourceHandlers struct {
	store     *db.Store
	templates func() *templates.TemplateSet
}

// NewResourceHandlers serves the template set returned by current, which may
// change between reads when templates are hot-reloaded.
func NewResourceHandlers(store *db.Store, current func() *templates.TemplateSet) *ResourceHandlers {
	return &ResourceHandlers{store: store, templates: current}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "canvass://") {
		return nil, fmt.Errorf("invalid URI scheme: expected canvass://")
	}

	parts := strings.Split(strings.TrimPrefix(uri, "canvass://"), "/")
	switch parts[0] {
	case "templates":
		return jsonResource(uri, h.templates().Templates())
	case "cycles":
		if len(parts) != 2 {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return h.readCycle(ctx, uri, parts[1])
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

type cycleHistory struct {
	Cycle    *models.Cycle           `json:"cycle"`
	Messages []models.MessageView    `json:"messages"`
	Statuses []models.CycleStatusLog `json:"status_log"`
}

func (h *ResourceHandlers) readCycle(ctx context.Context, uri, rawID string) (*mcp.ReadResourceResult, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	cycle, err := h.store.GetCycle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cycle: %w", err)
	}
	if cycle == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	messages, err := h.store.ListMessages(ctx, db.MessageFilter{CycleID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	logs, err := h.store.StatusLogs(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status log: %w", err)
	}
	return jsonResource(uri, cycleHistory{Cycle: cycle, Messages: messages, Statuses: logs})
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
