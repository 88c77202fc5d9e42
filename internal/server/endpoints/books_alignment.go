package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/reader"
)

// AlignmentCheckResponse offers body-page excerpts for the user to read
// printed page numbers from.
type AlignmentCheckResponse struct {
	BookID  int64                    `json:"book_id"`
	Samples []reader.AlignmentSample `json:"samples"`
}

// AlignmentCheckEndpoint handles GET /api/books/{id}/alignment-check.
type AlignmentCheckEndpoint struct{}

var _ api.Endpoint = (*AlignmentCheckEndpoint)(nil)

func (e *AlignmentCheckEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/alignment-check", e.handler
}

func (e *AlignmentCheckEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Sample pages for alignment
//	@Description	Return excerpts of the first body pages so the printed page numbering can be matched against physical page indexes
//	@Tags			alignment
//	@Produce		json
//	@Param			id	path	int	true	"Book ID"
//	@Success		200	{object}	AlignmentCheckResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/books/{id}/alignment-check [get]
func (e *AlignmentCheckEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
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

	samples, err := rd.CheckAlignmentOffset(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AlignmentCheckResponse{BookID: id, Samples: samples})
}

func (e *AlignmentCheckEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "alignment-check <book-id>",
		Short: "Sample body pages for page-number alignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AlignmentCheckResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0]+"/alignment-check", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// AlignmentOffsetRequest sets where printed page numbering starts.
type AlignmentOffsetRequest struct {
	PageNumber int `json:"page_number"`
}

// AlignmentOffsetResponse confirms the stored offset.
type AlignmentOffsetResponse struct {
	BookID          int64 `json:"book_id"`
	AlignmentOffset int   `json:"alignment_offset"`
}

// AlignmentOffsetEndpoint handles POST /api/books/{id}/alignment-offset.
type AlignmentOffsetEndpoint struct{}

var _ api.Endpoint = (*AlignmentOffsetEndpoint)(nil)

func (e *AlignmentOffsetEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/alignment-offset", e.handler
}

func (e *AlignmentOffsetEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Set the alignment offset
//	@Description	Record the physical page index where printed page numbering starts
//	@Tags			alignment
//	@Accept			json
//	@Produce		json
//	@Param			id		path	int						true	"Book ID"
//	@Param			body	body	AlignmentOffsetRequest	true	"Physical page index"
//	@Success		200	{object}	AlignmentOffsetResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/books/{id}/alignment-offset [post]
func (e *AlignmentOffsetEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req AlignmentOffsetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	rd, err := openBookReader(r, id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer rd.Close()

	if err := rd.UpdateAlignmentOffset(r.Context(), req.PageNumber); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AlignmentOffsetResponse{
		BookID:          id,
		AlignmentOffset: req.PageNumber,
	})
}

func (e *AlignmentOffsetEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-alignment-offset <book-id> <page-number>",
		Short: "Record where printed page numbering starts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page number %q", args[1])
			}
			client := api.NewClient(getServerURL())
			var resp AlignmentOffsetResponse
			path := "/api/books/" + args[0] + "/alignment-offset"
			if err := client.Post(cmd.Context(), path, AlignmentOffsetRequest{PageNumber: page}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
