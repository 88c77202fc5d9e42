package endpoints

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/jobs"
	"github.com/lazyreader/textbookd/internal/reader"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// ExtractRequest carries the extraction flags. All fields default to false
// (respectively true for caching) when the body is empty.
type ExtractRequest struct {
	// Overwrite discards previously extracted data and re-runs extraction.
	Overwrite bool `json:"overwrite"`
	// NoCache skips the cached structured TOC and asks the LLM again.
	NoCache bool `json:"no_cache"`
}

// ExtractResponse is returned when an extraction job is accepted.
type ExtractResponse struct {
	JobID  string `json:"job_id"`
	BookID int64  `json:"book_id"`
	Status string `json:"status"`
}

func decodeExtractRequest(r *http.Request) (ExtractRequest, error) {
	var req ExtractRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	return req, nil
}

// submitBookJob queues a reader-driven job for the book and writes the 202
// response.
func submitBookJob(w http.ResponseWriter, r *http.Request, bookID int64, jobType string,
	fn func(ctx context.Context, rd *reader.Reader) error) {
	s := svcctx.StoreFrom(r.Context())
	runner := svcctx.JobRunnerFrom(r.Context())
	if s == nil || runner == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	// Fail fast on unknown books instead of queueing a doomed job.
	if _, err := s.GetBook(r.Context(), bookID); err != nil {
		writeStoreError(w, err)
		return
	}

	job := jobs.FuncJob{
		Name: jobType,
		Fn: func(ctx context.Context) error {
			opts, err := readerOptions(ctx)
			if err != nil {
				return err
			}
			rd, err := reader.Open(ctx, opts.Home.BookPDFPath(bookID), opts)
			if err != nil {
				return err
			}
			defer rd.Close()
			return fn(ctx, rd)
		},
	}

	jobID, err := runner.Submit(r.Context(), job, &bookID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, ExtractResponse{
		JobID:  jobID,
		BookID: bookID,
		Status: "pending",
	})
}

// ExtractInfoEndpoint handles POST /api/books/{id}/extract-info.
type ExtractInfoEndpoint struct{}

var _ api.Endpoint = (*ExtractInfoEndpoint)(nil)

func (e *ExtractInfoEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/extract-info", e.handler
}

func (e *ExtractInfoEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract book metadata
//	@Description	Re-run title/author/keywords extraction from the book's first pages as a background job
//	@Tags			extraction
//	@Accept			json
//	@Produce		json
//	@Param			id		path	int				true	"Book ID"
//	@Param			body	body	ExtractRequest	false	"Extraction flags"
//	@Success		202	{object}	ExtractResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books/{id}/extract-info [post]
func (e *ExtractInfoEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := decodeExtractRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	submitBookJob(w, r, id, "extract_book_info", func(ctx context.Context, rd *reader.Reader) error {
		_, err := rd.ExtractBookInfo(ctx, req.Overwrite)
		return err
	})
}

func (e *ExtractInfoEndpoint) Command(getServerURL func() string) *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "extract-info <book-id>",
		Short: "Re-extract a book's title, author and keywords",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			path := "/api/books/" + args[0] + "/extract-info"
			if err := client.Post(cmd.Context(), path, ExtractRequest{Overwrite: overwrite}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Discard existing metadata and re-extract")
	return cmd
}

// TOCResponse is the stored table of contents of a book.
type TOCResponse struct {
	BookID   int64        `json:"book_id"`
	Exists   bool         `json:"exists"`
	Chapters []TOCChapter `json:"chapters"`
}

// TOCChapter is a chapter with its sections.
type TOCChapter struct {
	store.Chapter
	Sections []store.Section `json:"sections"`
}

// GetTOCEndpoint handles GET /api/books/{id}/toc.
type GetTOCEndpoint struct{}

var _ api.Endpoint = (*GetTOCEndpoint)(nil)

func (e *GetTOCEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/toc", e.handler
}

func (e *GetTOCEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get the table of contents
//	@Description	Get the extracted chapter and section structure of a book
//	@Tags			extraction
//	@Produce		json
//	@Param			id	path	int	true	"Book ID"
//	@Success		200	{object}	TOCResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id}/toc [get]
func (e *GetTOCEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if _, err := s.GetBook(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	chapters, err := s.ListChapters(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := TOCResponse{BookID: id, Exists: len(chapters) > 0, Chapters: []TOCChapter{}}
	for _, ch := range chapters {
		sections, err := s.ListSections(r.Context(), ch.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Chapters = append(resp.Chapters, TOCChapter{Chapter: ch, Sections: sections})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *GetTOCEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get-toc <book-id>",
		Short: "Get a book's extracted table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TOCResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0]+"/toc", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ExtractTOCEndpoint handles POST /api/books/{id}/toc.
type ExtractTOCEndpoint struct{}

var _ api.Endpoint = (*ExtractTOCEndpoint)(nil)

func (e *ExtractTOCEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/toc", e.handler
}

func (e *ExtractTOCEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract the table of contents
//	@Description	Detect the TOC pages, parse them with the LLM and store the chapter/section structure as a background job
//	@Tags			extraction
//	@Accept			json
//	@Produce		json
//	@Param			id		path	int				true	"Book ID"
//	@Param			body	body	ExtractRequest	false	"Extraction flags"
//	@Success		202	{object}	ExtractResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books/{id}/toc [post]
func (e *ExtractTOCEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := decodeExtractRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	submitBookJob(w, r, id, "extract_toc", func(ctx context.Context, rd *reader.Reader) error {
		return rd.ExtractTOC(ctx, !req.NoCache, req.Overwrite)
	})
}

func (e *ExtractTOCEndpoint) Command(getServerURL func() string) *cobra.Command {
	var overwrite, noCache bool
	cmd := &cobra.Command{
		Use:   "extract-toc <book-id>",
		Short: "Extract a book's table of contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ExtractResponse
			req := ExtractRequest{Overwrite: overwrite, NoCache: noCache}
			if err := client.Post(cmd.Context(), "/api/books/"+args[0]+"/toc", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Discard the existing structure and re-extract")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the cached structured TOC")
	return cmd
}
