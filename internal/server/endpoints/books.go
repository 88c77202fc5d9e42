package endpoints

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []store.BookSummary `json:"books"`
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

var _ api.Endpoint = (*ListBooksEndpoint)(nil)

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	List all books with their extraction state
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	ListBooksResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	books, err := s.ListBooks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list-books",
		Short: "List all books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(cmd.Context(), "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

var _ api.Endpoint = (*GetBookEndpoint)(nil)

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a book
//	@Description	Get a single book by id
//	@Tags			books
//	@Produce		json
//	@Param			id	path	int	true	"Book ID"
//	@Success		200	{object}	store.Book
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	book, err := s.GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get-book <book-id>",
		Short: "Get a book by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.Book
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// UpdateBookRequest carries the editable book fields. Nil fields are left
// unchanged.
type UpdateBookRequest struct {
	Name            *string `json:"name,omitempty"`
	Author          *string `json:"author,omitempty"`
	Keywords        *string `json:"keywords,omitempty"`
	Summary         *string `json:"summary,omitempty"`
	AlignmentOffset *int    `json:"alignment_offset,omitempty"`
}

// UpdateBookEndpoint handles PATCH /api/books/{id}.
type UpdateBookEndpoint struct{}

var _ api.Endpoint = (*UpdateBookEndpoint)(nil)

func (e *UpdateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/books/{id}", e.handler
}

func (e *UpdateBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update book fields
//	@Description	Update title, author, keywords, summary or alignment offset
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path	int					true	"Book ID"
//	@Param			body	body	UpdateBookRequest	true	"Fields to update"
//	@Success		200	{object}	store.Book
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [patch]
func (e *UpdateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	upd := store.BookUpdate{
		Name:     req.Name,
		Author:   req.Author,
		Keywords: req.Keywords,
		Summary:  req.Summary,
	}
	if err := s.UpdateBook(r.Context(), id, upd); err != nil {
		writeStoreError(w, err)
		return
	}
	if req.AlignmentOffset != nil {
		if err := s.SetAlignmentOffset(r.Context(), id, *req.AlignmentOffset); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	book, err := s.GetBook(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (e *UpdateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var name, author, keywords, summary string
	var offset int
	cmd := &cobra.Command{
		Use:   "update-book <book-id>",
		Short: "Update book fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := UpdateBookRequest{}
			if cmd.Flags().Changed("name") {
				req.Name = &name
			}
			if cmd.Flags().Changed("author") {
				req.Author = &author
			}
			if cmd.Flags().Changed("keywords") {
				req.Keywords = &keywords
			}
			if cmd.Flags().Changed("summary") {
				req.Summary = &summary
			}
			if cmd.Flags().Changed("alignment-offset") {
				req.AlignmentOffset = &offset
			}

			client := api.NewClient(getServerURL())
			var resp store.Book
			if err := client.Patch(cmd.Context(), "/api/books/"+args[0], req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Book name")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().StringVar(&keywords, "keywords", "", "Book keywords")
	cmd.Flags().StringVar(&summary, "summary", "", "Book summary")
	cmd.Flags().IntVar(&offset, "alignment-offset", 0, "Alignment offset")
	return cmd
}

// DeleteBookEndpoint handles DELETE /api/books/{id}.
type DeleteBookEndpoint struct{}

var _ api.Endpoint = (*DeleteBookEndpoint)(nil)

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a book
//	@Description	Delete a book and all of its chapters, sections and pages
//	@Tags			books
//	@Produce		json
//	@Param			id	path	int	true	"Book ID"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	if err := s.DeleteBook(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	// Remove the stored PDF and cached artifacts too.
	if h := svcctx.HomeFrom(r.Context()); h != nil {
		if err := os.RemoveAll(h.BookDir(id)); err != nil {
			logger := svcctx.LoggerFrom(r.Context())
			if logger != nil {
				logger.Warn("failed to remove book directory", "book_id", id, "error", err)
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-book <book-id>",
		Short: "Delete a book and its extracted structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			return client.Delete(cmd.Context(), "/api/books/"+args[0])
		},
	}
}
