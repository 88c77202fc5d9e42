package config

// Config holds textbookd configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	OCRProviders map[string]OCRProviderCfg `mapstructure:"ocr_providers" yaml:"ocr_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	OCRService   OCRServiceCfg             `mapstructure:"ocr_service" yaml:"ocr_service"`
	Detection    DetectionCfg              `mapstructure:"detection" yaml:"detection"`
}

// ServerCfg configures the HTTP API listener.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type    string `mapstructure:"type" yaml:"type"`       // "openrouter", "openai"
	Model   string `mapstructure:"model" yaml:"model"`     // Model name
	APIKey  string `mapstructure:"api_key" yaml:"api_key"` // API key (supports ${ENV_VAR} syntax)
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
}

// OCRProviderCfg configures an OCR provider.
type OCRProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "mineru", "mistral-ocr"
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url"`     // Service URL (for mineru)
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	Language  string  `mapstructure:"language" yaml:"language"`     // OCR language hint
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	OCRProvider string `mapstructure:"ocr_provider" yaml:"ocr_provider"` // Default OCR provider
	OCRMode     string `mapstructure:"ocr_mode" yaml:"ocr_mode"`         // "ocr" or "text"
	RenderDPI   int    `mapstructure:"render_dpi" yaml:"render_dpi"`     // Page render resolution
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"`   // Max concurrent jobs
}

// OCRServiceCfg holds the local MinerU container configuration.
type OCRServiceCfg struct {
	// ContainerName is the Docker container name (default: textbookd-mineru)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 8000)
	Port string `mapstructure:"port" yaml:"port"`
	// AutoStart starts the container when the server boots
	AutoStart bool `mapstructure:"auto_start" yaml:"auto_start"`
}

// DetectionCfg overrides table-of-contents detection parameters.
// Zero values fall back to the built-in defaults.
type DetectionCfg struct {
	Prior     float64 `mapstructure:"prior" yaml:"prior"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	MaxPages  int     `mapstructure:"max_pages" yaml:"max_pages"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8080,
		},
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:    "openrouter",
				Model:   "anthropic/claude-sonnet-4",
				APIKey:  "${OPENROUTER_API_KEY}",
				Enabled: true,
			},
			"openai": {
				Type:    "openai",
				Model:   "gpt-4o",
				APIKey:  "${OPENAI_API_KEY}",
				Enabled: false,
			},
		},
		OCRProviders: map[string]OCRProviderCfg{
			"mineru": {
				Type:      "mineru",
				BaseURL:   "http://localhost:8000",
				Language:  "en",
				RateLimit: 2.0,
				Enabled:   true,
			},
			"mistral": {
				Type:      "mistral-ocr",
				APIKey:    "${MISTRAL_API_KEY}",
				RateLimit: 6.0,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			OCRProvider: "mineru",
			OCRMode:     "ocr",
			RenderDPI:   150,
			MaxWorkers:  4,
		},
		OCRService: OCRServiceCfg{
			ContainerName: "textbookd-mineru",
			Image:         "mineru/mineru-api:latest",
			Port:          "8000",
			AutoStart:     false,
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// GetOCRProvider returns an OCR provider config by name.
func (c *Config) GetOCRProvider(name string) (OCRProviderCfg, bool) {
	cfg, ok := c.OCRProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// EnabledOCRProviders returns all enabled OCR providers.
func (c *Config) EnabledOCRProviders() map[string]OCRProviderCfg {
	result := make(map[string]OCRProviderCfg)
	for name, cfg := range c.OCRProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
