// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/lazyreader/textbookd/internal/config"
	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/jobs"
	"github.com/lazyreader/textbookd/internal/ocrsvc"
	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Store      *store.Store
	Registry   *providers.Registry
	JobRunner  *jobs.Runner
	Config     *config.Manager
	Logger     *slog.Logger
	Home       *home.Dir
	OCRService *ocrsvc.DockerManager
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// StoreFrom extracts the store from context.
func StoreFrom(ctx context.Context) *store.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Store
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// JobRunnerFrom extracts the job runner from context.
func JobRunnerFrom(ctx context.Context) *jobs.Runner {
	if s := ServicesFrom(ctx); s != nil {
		return s.JobRunner
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

// OCRServiceFrom extracts the OCR container manager from context.
func OCRServiceFrom(ctx context.Context) *ocrsvc.DockerManager {
	if s := ServicesFrom(ctx); s != nil {
		return s.OCRService
	}
	return nil
}
