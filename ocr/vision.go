// ABOUTME: Google Cloud Vision text detection engine
// ABOUTME: Authenticates with an API key or service account credentials
package ocr

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// Vision reads text with the Cloud Vision TEXT_DETECTION feature.
type Vision struct {
	svc *vision.Service
}

// NewVision builds a Vision engine. credentialsJSON takes precedence over
// apiKey when both are set. Extra options are passed to the client.
func NewVision(ctx context.Context, apiKey string, credentialsJSON []byte, opts ...option.ClientOption) (*Vision, error) {
	switch {
	case len(credentialsJSON) > 0:
		creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, vision.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("vision: invalid credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case apiKey != "":
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision: failed to create client: %w", err)
	}
	return &Vision{svc: svc}, nil
}

func (v *Vision) ExtractText(ctx context.Context, image []byte, filename string) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := v.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision: annotate %s: %w", filename, err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return "", fmt.Errorf("vision: %s", r.Error.Message)
	}
	if r.FullTextAnnotation != nil {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	return "", nil
}
