// Package providers holds the external AI collaborators: LLM clients used for
// structured extraction (book metadata, TOC structuring) and OCR backends
// that turn page images into markdown text.
package providers

import (
	"context"
	"encoding/json"
	"time"
)

// LLMClient is the interface for chat completion requests.
type LLMClient interface {
	// Chat sends a chat completion request.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	// Name returns the client identifier (e.g., "openrouter").
	Name() string
}

// OCRProvider handles image-to-text extraction. Separate from LLM because it
// has different rate limiting, retry patterns, and result handling (markdown
// text vs structured responses).
type OCRProvider interface {
	// Name returns the provider identifier (e.g., "mineru", "mistral-ocr").
	Name() string

	// ProcessImage extracts text from a page image.
	ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error)

	// Rate limiting properties
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// Message represents a chat message.
type Message struct {
	Role    string   `json:"role"` // "system", "user", "assistant"
	Content string   `json:"content"`
	Images  [][]byte `json:"-"` // For vision models (base64 encoded in request)
}

// ResponseFormat requests structured output. JSONSchema carries the
// json_schema wrapper ({"name":..., "schema": {...}}).
type ResponseFormat struct {
	Type       string          `json:"type"` // "json_schema"
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// ChatRequest is a request to an LLM.
type ChatRequest struct {
	Messages []Message `json:"messages"`

	// Model selection (uses client default if empty)
	Model string `json:"model,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`

	// Structured output
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`

	// Request tracking
	RequestID string `json:"-"`
}

// ChatResult is the response from an LLM call.
type ChatResult struct {
	Content    string          `json:"content"`
	ParsedJSON json.RawMessage `json:"parsed_json,omitempty"` // Set when ResponseFormat was requested

	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`
	RequestID string `json:"request_id"`
}

// OCRResult is the response from an OCR provider.
type OCRResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text"` // Markdown formatted

	// Metadata from provider (dimensions, detected images, etc.)
	Metadata map[string]any `json:"metadata,omitempty"`

	ExecutionTime time.Duration `json:"execution_time"`

	ErrorMessage string `json:"error_message,omitempty"`
}
