// ABOUTME: Image-to-text engine interface and the OCR.space implementation
// ABOUTME: Engines return best-effort raw text for a screenshot
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Engine turns an image into raw text.
type Engine interface {
	ExtractText(ctx context.Context, image []byte, filename string) (string, error)
}

// DefaultOCRSpaceEndpoint is the public OCR.space parse endpoint.
const DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

// OCRSpace calls the OCR.space REST API.
type OCRSpace struct {
	APIKey   string
	Endpoint string
	Language string
	EngineID int
	Client   *http.Client
}

// NewOCRSpace returns a client using engine 2 and English, which reads mixed
// Indonesian and English chat text well.
func NewOCRSpace(apiKey string, timeout time.Duration) *OCRSpace {
	return &OCRSpace{
		APIKey:   apiKey,
		Endpoint: DefaultOCRSpaceEndpoint,
		Language: "eng",
		EngineID: 2,
		Client:   &http.Client{Timeout: timeout},
	}
}

type ocrSpaceResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

func (o *OCRSpace) ExtractText(ctx context.Context, image []byte, filename string) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("ocr.space: no API key configured")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"apikey":    o.APIKey,
		"language":  o.Language,
		"OCREngine": strconv.Itoa(o.EngineID),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", fmt.Errorf("ocr.space: failed to build request: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ocr.space: failed to build request: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("ocr.space: failed to build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ocr.space: failed to build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("ocr.space: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr.space: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("ocr.space: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr.space: status %d: %s", resp.StatusCode, truncateRunes(string(data), 200))
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("ocr.space: failed to decode response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr.space: %s", errorMessage(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 {
		return "", nil
	}
	return parsed.ParsedResults[0].ParsedText, nil
}

// errorMessage flattens ErrorMessage, which the API sends either as a string
// or as a list of strings.
func errorMessage(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return "processing failed"
}
