package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = openai.ChatModelGPT4o
)

// OpenAIConfig holds configuration for the OpenAI chat client.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string
	MaxRetries   int           // Retry attempts for SDK transport
	Timeout      time.Duration // HTTP timeout
	BaseURL      string        // Optional (tests)
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK.
type OpenAIClient struct {
	defaultModel string
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		defaultModel: cfg.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	if req.Temperature != 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens != 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			if len(m.Images) > 0 {
				parts := []openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(m.Content),
				}
				for _, img := range m.Images {
					parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
					}))
				}
				params.Messages = append(params.Messages, openai.UserMessage(parts))
			} else {
				params.Messages = append(params.Messages, openai.UserMessage(m.Content))
			}
		}
	}

	if req.ResponseFormat != nil {
		jsonSchema, err := toOpenAIJSONSchema(req.ResponseFormat.JSONSchema)
		if err != nil {
			return nil, err
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: jsonSchema,
			},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	content := resp.Choices[0].Message.Content
	result := &ChatResult{
		Content:          content,
		Provider:         OpenAIName,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
	}

	if req.ResponseFormat != nil {
		parsed, err := parseStructuredJSON(content)
		if err != nil {
			return nil, fmt.Errorf("structured output from %s: %w", resp.Model, err)
		}
		if err := validateStructuredJSON(req.ResponseFormat.JSONSchema, parsed); err != nil {
			return nil, err
		}
		result.ParsedJSON = parsed
	}

	return result, nil
}

// toOpenAIJSONSchema converts the wire-level json_schema wrapper
// ({"name":..., "schema": {...}}) into the SDK's typed param.
func toOpenAIJSONSchema(raw json.RawMessage) (shared.ResponseFormatJSONSchemaJSONSchemaParam, error) {
	var wrapper struct {
		Name   string         `json:"name"`
		Strict *bool          `json:"strict,omitempty"`
		Schema map[string]any `json:"schema"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return shared.ResponseFormatJSONSchemaJSONSchemaParam{}, fmt.Errorf("invalid json_schema wrapper: %w", err)
	}
	if wrapper.Name == "" {
		wrapper.Name = "response"
	}
	out := shared.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:   wrapper.Name,
		Schema: wrapper.Schema,
	}
	if wrapper.Strict != nil {
		out.Strict = openai.Bool(*wrapper.Strict)
	}
	return out, nil
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
