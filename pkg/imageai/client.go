// Package imageai calls the dental image classifier.
package imageai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"dental-triage-be/pkg/store"
)

// DiseaseThreshold: a disease prediction below this confidence is read as
// no disease.
const DiseaseThreshold = 0.30

var ErrNotConfigured = errors.New("image classifier URL is not configured")

type Client struct {
	baseURL string
	client  *http.Client
}

type predictResponse struct {
	Status     string   `json:"status"`
	Prediction string   `json:"prediction"`
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Classify uploads one image and returns the normalised result.
func (c *Client) Classify(ctx context.Context, filename string, data []byte) (*store.ImageResult, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || out.Error != "" {
		return nil, fmt.Errorf("image classifier error (status %d): %s", resp.StatusCode, out.Error)
	}

	return Normalize(out.Status, out.Prediction, out.Confidence), nil
}

// Normalize lower-cases the fields and demotes low-confidence disease
// predictions.
func Normalize(status, prediction string, confidence *float64) *store.ImageResult {
	res := &store.ImageResult{
		Status:     strings.ToLower(strings.TrimSpace(status)),
		Prediction: strings.ToLower(strings.TrimSpace(prediction)),
	}
	if confidence != nil {
		c := *confidence
		res.Confidence = &c
	}
	if res.Status == "" {
		res.Status = store.ImageStatusError
	}
	if res.Status == store.ImageStatusDiseaseDetected && res.Confidence != nil && *res.Confidence < DiseaseThreshold {
		res.Status = store.ImageStatusNoDiseaseDetected
		res.Prediction = "no_disease"
	}
	return res
}
