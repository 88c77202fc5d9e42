// Package endpoints defines every HTTP route of the server. Each endpoint
// doubles as a CLI command that calls the route on a running server.
package endpoints

import (
	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/ocrsvc"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	OCRManager      *ocrsvc.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{OCRManager: cfg.OCRManager},

		// Book endpoints
		&UploadBookEndpoint{},
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&UpdateBookEndpoint{},
		&DeleteBookEndpoint{},

		// Page endpoints
		&TotalPagesEndpoint{},
		&PageTextEndpoint{},
		&PageImageEndpoint{},

		// Extraction endpoints
		&ExtractInfoEndpoint{},
		&GetTOCEndpoint{},
		&ExtractTOCEndpoint{},

		// Alignment endpoints
		&AlignmentCheckEndpoint{},
		&AlignmentOffsetEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
