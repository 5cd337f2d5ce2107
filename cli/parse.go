// ABOUTME: parse and upload subcommands
// ABOUTME: Parse raw OCR text offline, or record a screenshot through the full pipeline
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/pipeline"
	"github.com/spf13/cobra"
)

func newParseCommand(rt *runtime) *cobra.Command {
	var stage int

	cmd := &cobra.Command{
		Use:   "parse <file|->",
		Short: "Parse raw OCR text and print the handle, snippet and date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			text, err := buildText(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer text.Close()

			var expected *int
			if cmd.Flags().Changed("stage") {
				if !models.ValidStage(stage) {
					return fmt.Errorf("stage must be between 0 and %d", models.MaxStage)
				}
				expected = &stage
			}

			out := struct {
				Result     interface{} `json:"result"`
				Validation interface{} `json:"template_validation,omitempty"`
			}{}
			result := text.Parser.Parse(string(raw), expected)
			out.Result = result
			if expected != nil && result.MessageSnippet != "" {
				out.Validation = text.Scorer.ValidateForStage(result.MessageSnippet, *expected)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&stage, "stage", 0, "Expected stage 0-7")
	return cmd
}

func newUploadCommand(rt *runtime) *cobra.Command {
	var req pipeline.UploadRequest

	cmd := &cobra.Command{
		Use:   "upload <image>",
		Short: "Record a screenshot as if it were uploaded through the API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			req.Image = image
			req.Filename = filepath.Base(args[0])

			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Uploader.Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().Int64Var(&req.StaffID, "staff", 0, "Staff member ID (required)")
	cmd.Flags().IntVar(&req.Stage, "stage", 0, "Stage 0-7")
	cmd.Flags().StringVar(&req.Category, "category", "", "Prospect category: umkm_fb, coffee_shop or restoran (required)")
	cmd.Flags().StringVar(&req.Channel, "channel", "", "Outreach channel")
	cmd.Flags().StringVar(&req.InteractionStatus, "outcome", "", "Interaction outcome: no_response, menolak, tertarik or menerima")
	cmd.Flags().StringVar(&req.ContactNumber, "contact", "", "Prospect contact number")
	_ = cmd.MarkFlagRequired("staff")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
