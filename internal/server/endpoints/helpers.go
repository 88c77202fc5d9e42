package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/reader"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/svcctx"
	"github.com/lazyreader/textbookd/internal/toc"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeStoreError maps store errors to HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// pathID parses the {id} path value as a book or job identifier.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// readerOptions assembles reader.Options from the services on ctx, using the
// default providers from config. Works for both request and job contexts.
func readerOptions(ctx context.Context) (reader.Options, error) {
	s := svcctx.StoreFrom(ctx)
	h := svcctx.HomeFrom(ctx)
	registry := svcctx.RegistryFrom(ctx)
	cm := svcctx.ConfigFrom(ctx)
	logger := svcctx.LoggerFrom(ctx)

	if s == nil || h == nil {
		return reader.Options{}, fmt.Errorf("services not initialized")
	}

	opts := reader.Options{
		Store:  s,
		Home:   h,
		Logger: logger,
	}

	if cm != nil {
		cfg := cm.Get()
		opts.TextOnly = cfg.Defaults.OCRMode == "text"
		opts.RenderDPI = cfg.Defaults.RenderDPI
		opts.Scanner = toc.NewScannerWithLimit(
			toc.NewClassifier(cfg.ToDetectionParameters()),
			cfg.DetectionMaxPages(), logger)
		if registry != nil {
			opts.LLM, opts.OCR = defaultProviders(registry, cfg.Defaults.LLMProvider, cfg.Defaults.OCRProvider)
		}
	}

	return opts, nil
}

// openBookReader builds a Reader for the given book's stored PDF. The caller
// must Close it.
func openBookReader(r *http.Request, bookID int64) (*reader.Reader, error) {
	ctx := r.Context()

	opts, err := readerOptions(ctx)
	if err != nil {
		return nil, err
	}

	book, err := opts.Store.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	return reader.Open(ctx, opts.Home.BookPDFPath(book.ID), opts)
}

func defaultProviders(registry *providers.Registry, llmName, ocrName string) (providers.LLMClient, providers.OCRProvider) {
	var llm providers.LLMClient
	var ocr providers.OCRProvider
	if llmName != "" {
		if c, err := registry.GetLLM(llmName); err == nil {
			llm = c
		}
	}
	if ocrName != "" {
		if p, err := registry.GetOCR(ocrName); err == nil {
			ocr = p
		}
	}
	return llm, ocr
}
