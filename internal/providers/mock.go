package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MockLLMClient is a scriptable LLMClient for tests. Responses are consumed
// in order; when the queue is empty Default is returned.
type MockLLMClient struct {
	mu        sync.Mutex
	responses []*ChatResult
	Default   *ChatResult
	Err       error
	Requests  []*ChatRequest
}

// NewMockLLMClient creates a mock with no queued responses.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Default: &ChatResult{Content: "{}", Provider: "mock"},
	}
}

// QueueJSON queues a structured response whose ParsedJSON is the given value.
func (m *MockLLMClient) QueueJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, &ChatResult{
		Content:    string(raw),
		ParsedJSON: raw,
		Provider:   "mock",
	})
	return nil
}

// Name returns the client identifier.
func (m *MockLLMClient) Name() string { return "mock" }

// Chat records the request and returns the next queued response.
func (m *MockLLMClient) Chat(_ context.Context, req *ChatRequest) (*ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.responses) > 0 {
		resp := m.responses[0]
		m.responses = m.responses[1:]
		return resp, nil
	}
	if m.Default != nil {
		return m.Default, nil
	}
	return nil, fmt.Errorf("mock: no response queued")
}

// MockOCRProvider is a scriptable OCRProvider for tests. PageText maps page
// numbers to the markdown the provider should return.
type MockOCRProvider struct {
	mu       sync.Mutex
	PageText map[int]string
	Err      error
	Calls    []int
}

// NewMockOCRProvider creates a mock with the given page texts.
func NewMockOCRProvider(pageText map[int]string) *MockOCRProvider {
	if pageText == nil {
		pageText = make(map[int]string)
	}
	return &MockOCRProvider{PageText: pageText}
}

// Name returns the provider identifier.
func (m *MockOCRProvider) Name() string { return "mock-ocr" }

// ProcessImage returns the scripted text for pageNum.
func (m *MockOCRProvider) ProcessImage(_ context.Context, _ []byte, pageNum int) (*OCRResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, pageNum)
	if m.Err != nil {
		return &OCRResult{Success: false, ErrorMessage: m.Err.Error()}, m.Err
	}
	return &OCRResult{Success: true, Text: m.PageText[pageNum]}, nil
}

// RequestsPerSecond returns a high limit so tests never throttle.
func (m *MockOCRProvider) RequestsPerSecond() float64 { return 1000 }

// MaxRetries returns a single attempt.
func (m *MockOCRProvider) MaxRetries() int { return 1 }

// RetryDelayBase returns a negligible delay.
func (m *MockOCRProvider) RetryDelayBase() time.Duration { return time.Millisecond }

// Verify interfaces
var (
	_ LLMClient   = (*MockLLMClient)(nil)
	_ OCRProvider = (*MockOCRProvider)(nil)
)
