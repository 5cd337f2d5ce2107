// ABOUTME: MCP server subcommand
// ABOUTME: Exposes OCR parsing, template checks and canvassing lookups over stdio
package cli

import (
	"context"

	"github.com/harperreed/canvass/handlers"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newMCPCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			server := NewMCPServer(app, cmd.Root().Version)

			g, ctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(ctx)
			g.Go(func() error {
				defer cancel()
				return server.Run(ctx, &mcp.StdioTransport{})
			})
			if app.Watcher != nil {
				g.Go(func() error {
					return app.Watcher.Run(ctx)
				})
			}
			return g.Wait()
		},
	}
}

// NewMCPServer registers every tool, resource and prompt.
func NewMCPServer(app *App, version string) *mcp.Server {
	ocrHandlers := handlers.NewOCRHandlers(app.Parser, app.Scorer)
	canvassHandlers := handlers.NewCanvassHandlers(app.Store, app.Uploader)
	resourceHandlers := handlers.NewResourceHandlers(app.Store, app.Set)
	promptHandlers := handlers.NewPromptHandlers(app.Supervisor)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "canvass",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_ocr_text",
		Description: "Read the prospect handle, message snippet and date from raw screenshot OCR text",
	}, ocrHandlers.ParseOCRText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_stage_text",
		Description: "Check whether a message matches the template of a canvassing or follow-up stage",
	}, ocrHandlers.ValidateStageText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_prospects",
		Description: "Search prospects by handle",
	}, canvassHandlers.FindProspects)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_cycles",
		Description: "List canvassing cycles with optional staff and status filters",
	}, canvassHandlers.ListCycles)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "suggest_stage",
		Description: "Suggest the stage a staff member should submit next",
	}, canvassHandlers.SuggestStage)

	server.AddResource(&mcp.Resource{
		URI:         handlers.TemplatesURI,
		Name:        "stage-templates",
		Description: "Keywords and phrases expected at each stage",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: handlers.CycleURITemplate,
		Name:        "cycle-history",
		Description: "A canvassing cycle with its messages and status log",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        handlers.ReviewBriefingPrompt,
		Description: "Summarize the pending review queue for a supervisor",
		Arguments: []*mcp.PromptArgument{
			{Name: "staff_id", Description: "Only this staff member's uploads"},
		},
	}, promptHandlers.GetPrompt)

	return server
}
