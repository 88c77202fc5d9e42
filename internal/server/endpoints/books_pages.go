package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/pdf"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// pathPage parses the {page} path value as a zero-based page number.
func pathPage(r *http.Request) (int, error) {
	raw := r.PathValue("page")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 0 {
		return 0, fmt.Errorf("invalid page %q", raw)
	}
	return page, nil
}

// TotalPagesResponse is the response for the total pages endpoint.
type TotalPagesResponse struct {
	BookID     int64 `json:"book_id"`
	TotalPages int   `json:"total_pages"`
}

// TotalPagesEndpoint handles GET /api/books/{id}/total-pages.
type TotalPagesEndpoint struct{}

var _ api.Endpoint = (*TotalPagesEndpoint)(nil)

func (e *TotalPagesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/total-pages", e.handler
}

func (e *TotalPagesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get total pages
//	@Description	Get the page count of a book's PDF
//	@Tags			pages
//	@Produce		json
//	@Param			id	path	int	true	"Book ID"
//	@Success		200	{object}	TotalPagesResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id}/total-pages [get]
func (e *TotalPagesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := svcctx.StoreFrom(r.Context())
	h := svcctx.HomeFrom(r.Context())
	if s == nil || h == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	book, err := s.GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	total := book.Pages
	if total <= 0 {
		total, err = pdf.PageCount(h.BookPDFPath(book.ID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, TotalPagesResponse{BookID: book.ID, TotalPages: total})
}

func (e *TotalPagesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "total-pages <book-id>",
		Short: "Get a book's page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp TotalPagesResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0]+"/total-pages", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// PageTextResponse is the response for the page text endpoint.
type PageTextResponse struct {
	BookID     int64  `json:"book_id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// PageTextEndpoint handles GET /api/books/{id}/pages/{page}/text.
type PageTextEndpoint struct{}

var _ api.Endpoint = (*PageTextEndpoint)(nil)

func (e *PageTextEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/pages/{page}/text", e.handler
}

func (e *PageTextEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get page text
//	@Description	Get the extracted text of one page. Cached text is returned directly; uncached pages go through OCR or the embedded text layer first, which can be slow.
//	@Tags			pages
//	@Produce		json
//	@Param			id		path	int	true	"Book ID"
//	@Param			page	path	int	true	"Zero-based page number"
//	@Success		200	{object}	PageTextResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/books/{id}/pages/{page}/text [get]
func (e *PageTextEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := pathPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rd, err := openBookReader(r, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer rd.Close()

	if page >= rd.TotalPages() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("page %d out of range [0, %d)", page, rd.TotalPages()))
		return
	}

	text, err := rd.PageContent(r.Context(), page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PageTextResponse{BookID: id, PageNumber: page, Text: text})
}

func (e *PageTextEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "page-text <book-id> <page>",
		Short: "Get the extracted text of a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PageTextResponse
			path := "/api/books/" + args[0] + "/pages/" + args[1] + "/text"
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			fmt.Println(resp.Text)
			return nil
		},
	}
}

// PageImageEndpoint handles GET /api/books/{id}/pages/{page}/image.
type PageImageEndpoint struct{}

var _ api.Endpoint = (*PageImageEndpoint)(nil)

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/pages/{page}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Render a page image
//	@Description	Rasterize one page of a book's PDF to PNG
//	@Tags			pages
//	@Produce		png
//	@Param			id		path	int	true	"Book ID"
//	@Param			page	path	int	true	"Zero-based page number"
//	@Param			dpi		query	int	false	"Render resolution (72-300, default 150)"
//	@Success		200	{file}	binary
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/books/{id}/pages/{page}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := pathPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dpi := 0
	if raw := r.URL.Query().Get("dpi"); raw != "" {
		dpi, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid dpi %q", raw))
			return
		}
	}

	s := svcctx.StoreFrom(r.Context())
	h := svcctx.HomeFrom(r.Context())
	if s == nil || h == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	book, err := s.GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	doc, err := pdf.Open(h.BookPDFPath(book.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer doc.Close()

	data, err := doc.RenderPage(r.Context(), page, dpi)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (e *PageImageEndpoint) Command(_ func() string) *cobra.Command {
	// Binary output; fetch page images with curl.
	return nil
}
