package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

const (
	MinerUName    = "mineru"
	MinerUBaseURL = "http://localhost:8000"
)

// MinerUConfig holds configuration for the MinerU OCR client.
type MinerUConfig struct {
	BaseURL   string
	Language  string        // OCR language hint (default "en")
	Timeout   time.Duration // Large scans take a while; default 5m
	RateLimit float64       // Requests per second (default 2.0, it is a local GPU service)
}

// MinerUClient implements OCRProvider against a local MinerU server's
// /file_parse endpoint.
type MinerUClient struct {
	baseURL   string
	language  string
	rateLimit float64
	client    *http.Client
}

// NewMinerUClient creates a new MinerU client.
func NewMinerUClient(cfg MinerUConfig) *MinerUClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = MinerUBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 2.0
	}

	return &MinerUClient{
		baseURL:   cfg.BaseURL,
		language:  cfg.Language,
		rateLimit: cfg.RateLimit,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider identifier.
func (c *MinerUClient) Name() string {
	return MinerUName
}

// RequestsPerSecond returns the rate limit.
func (c *MinerUClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *MinerUClient) MaxRetries() int {
	return 3
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *MinerUClient) RetryDelayBase() time.Duration {
	return 2 * time.Second
}

// ProcessImage extracts markdown text from a single page image.
func (c *MinerUClient) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	start := time.Now()

	fileName := fmt.Sprintf("page_%04d.png", pageNum)
	results, err := c.fileParse(ctx, fileName, "image/png", image, 0, 0)
	if err != nil {
		return &OCRResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	text, ok := extractMarkdown(results)
	if !ok {
		err := fmt.Errorf("no text content in MinerU response")
		return &OCRResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	return &OCRResult{
		Success:       true,
		Text:          text,
		Metadata:      map[string]any{"page_num": pageNum},
		ExecutionTime: time.Since(start),
	}, nil
}

// fileParse uploads one file to /file_parse with the fixed parameter set the
// server expects. startPage and endPage bound the parse for multi-page
// documents; both are 0 for single page images.
func (c *MinerUClient) fileParse(ctx context.Context, fileName, contentType string, data []byte, startPage, endPage int) (map[string]json.RawMessage, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("files", fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}

	fields := map[string]string{
		"output_dir":          "./output",
		"lang_list":           c.language,
		"backend":             "pipeline",
		"parse_method":        "auto",
		"formula_enable":      "true",
		"table_enable":        "true",
		"return_md":           "true",
		"return_middle_json":  "false",
		"return_model_output": "false",
		"return_content_list": "false",
		"return_images":       "false",
		"response_format_zip": "false",
		"start_page_id":       strconv.Itoa(startPage),
		"end_page_id":         strconv.Itoa(endPage),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/file_parse", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("MinerU error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Results map[string]json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return parsed.Results, nil
}

// extractMarkdown pulls the text payload out of a results map. md_content is
// the documented key; some server versions use content/text/markdown instead.
func extractMarkdown(results map[string]json.RawMessage) (string, bool) {
	type fileResult map[string]json.RawMessage

	decoded := make([]fileResult, 0, len(results))
	for _, raw := range results {
		var fr fileResult
		if err := json.Unmarshal(raw, &fr); err != nil {
			continue
		}
		decoded = append(decoded, fr)
	}

	for _, fr := range decoded {
		if text, ok := stringField(fr, "md_content"); ok {
			return text, true
		}
	}
	for _, fr := range decoded {
		for _, key := range []string{"content", "text", "markdown"} {
			if text, ok := stringField(fr, key); ok {
				return text, true
			}
		}
	}
	return "", false
}

func stringField(fr map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fr[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Verify interface
var _ OCRProvider = (*MinerUClient)(nil)
