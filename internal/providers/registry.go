package providers

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds references to LLM clients and OCR providers. It supports
// config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu           sync.RWMutex
	llmClients   map[string]LLMClient
	ocrProviders map[string]OCRProvider
	logger       *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients:   make(map[string]LLMClient),
		ocrProviders: make(map[string]OCRProvider),
		logger:       slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients[name] = client
	r.logger.Info("registered LLM client", "name", name)
}

// RegisterOCR registers an OCR provider by name.
func (r *Registry) RegisterOCR(name string, provider OCRProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ocrProviders[name] = provider
	r.logger.Info("registered OCR provider", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// GetOCR returns an OCR provider by name.
func (r *Registry) GetOCR(name string) (OCRProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.ocrProviders[name]
	if !ok {
		return nil, fmt.Errorf("OCR provider not found: %s", name)
	}
	return provider, nil
}

// ListLLM returns all registered LLM client names.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	return names
}

// ListOCR returns all registered OCR provider names.
func (r *Registry) ListOCR() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ocrProviders))
	for name := range r.ocrProviders {
		names = append(names, name)
	}
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// HasOCR checks if an OCR provider is registered.
func (r *Registry) HasOCR(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ocrProviders[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// LLMProviders maps provider names to their config.
	LLMProviders map[string]LLMProviderConfig

	// OCRProviders maps provider names to their config.
	OCRProviders map[string]OCRProviderConfig
}

// LLMProviderConfig holds one LLM provider's resolved settings.
type LLMProviderConfig struct {
	Type    string // "openrouter", "openai"
	Model   string // Default model
	APIKey  string // Resolved API key
	Enabled bool
}

// OCRProviderConfig holds one OCR provider's resolved settings.
type OCRProviderConfig struct {
	Type      string  // "mineru", "mistral-ocr"
	BaseURL   string  // For local services (mineru)
	APIKey    string  // Resolved API key (remote services)
	Language  string  // OCR language hint
	RateLimit float64 // Requests per second
	Enabled   bool
}

// NewRegistryFromConfig creates a registry with providers based on
// configuration. Only enabled providers are registered; remote providers also
// need an API key.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}
		if client := createLLMClient(provCfg); client != nil {
			r.llmClients[name] = client
			r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
		}
	}

	for name, provCfg := range cfg.OCRProviders {
		if !provCfg.Enabled {
			continue
		}
		if provCfg.Type != MinerUName && provCfg.APIKey == "" {
			continue
		}
		if provider := createOCRProvider(provCfg); provider != nil {
			r.ocrProviders[name] = provider
			r.logger.Info("registered OCR provider", "name", name, "type", provCfg.Type)
		}
	}

	return r
}

// Reload rebuilds the provider maps from new configuration. Providers no
// longer configured are dropped.
func (r *Registry) Reload(cfg RegistryConfig) {
	fresh := NewRegistryFromConfig(cfg, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.llmClients = fresh.llmClients
	r.ocrProviders = fresh.ocrProviders
}

func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case "openrouter":
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
		})
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
		})
	default:
		return nil
	}
}

func createOCRProvider(cfg OCRProviderConfig) OCRProvider {
	switch cfg.Type {
	case MinerUName:
		return NewMinerUClient(MinerUConfig{
			BaseURL:   cfg.BaseURL,
			Language:  cfg.Language,
			RateLimit: cfg.RateLimit,
		})
	case "mistral-ocr":
		return NewMistralOCRClient(MistralOCRConfig{
			APIKey:    cfg.APIKey,
			RateLimit: cfg.RateLimit,
		})
	default:
		return nil
	}
}
