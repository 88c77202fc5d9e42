package endpoints

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/jobs"
	"github.com/lazyreader/textbookd/internal/reader"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// UploadResponse is returned after a PDF upload is accepted.
type UploadResponse struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
	Status   string `json:"status"`
}

// UploadBookEndpoint handles POST /api/books with a multipart PDF upload.
// The upload is staged to disk and metadata extraction runs as a background
// job, so the response carries a job id rather than a book id.
type UploadBookEndpoint struct{}

var _ api.Endpoint = (*UploadBookEndpoint)(nil)

func (e *UploadBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books", e.handler
}

func (e *UploadBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Upload a book PDF
//	@Description	Upload a PDF and register it as a new book. Title, author and keywords are extracted in the background.
//	@Tags			books
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF file"
//	@Success		202	{object}	UploadResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books [post]
func (e *UploadBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 500 << 20 // 500MB
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)
	if !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file %s is not a PDF", fileName))
		return
	}

	h := svcctx.HomeFrom(r.Context())
	runner := svcctx.JobRunnerFrom(r.Context())
	if h == nil || runner == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	// Stage the upload in its own directory so the original file name
	// survives; the reader derives the book's file name from it.
	uploadDir := filepath.Join(h.UploadsDir(), uuid.New().String())
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to stage upload: %v", err))
		return
	}
	pdfPath := filepath.Join(uploadDir, fileName)

	dst, err := os.Create(pdfPath)
	if err != nil {
		os.RemoveAll(uploadDir)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create file: %v", err))
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.RemoveAll(uploadDir)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save file: %v", err))
		return
	}
	dst.Close()

	job := jobs.FuncJob{
		Name: "book_ingest",
		Fn: func(ctx context.Context) error {
			return ingestUpload(ctx, uploadDir, pdfPath)
		},
	}
	jobID, err := runner.Submit(r.Context(), job, nil)
	if err != nil {
		os.RemoveAll(uploadDir)
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		JobID:    jobID,
		FileName: fileName,
		Status:   "pending",
	})
}

// ingestUpload extracts book metadata from the staged PDF, files it under the
// book's data directory and removes the staging directory.
func ingestUpload(ctx context.Context, uploadDir, pdfPath string) error {
	opts, err := readerOptions(ctx)
	if err != nil {
		return err
	}

	rd, err := reader.Open(ctx, pdfPath, opts)
	if err != nil {
		return fmt.Errorf("opening uploaded pdf: %w", err)
	}
	defer rd.Close()

	book, err := rd.ExtractBookInfo(ctx, false)
	if err != nil {
		return fmt.Errorf("extracting book info: %w", err)
	}

	if err := opts.Home.EnsureBookDir(book.ID); err != nil {
		return err
	}
	if err := copyFile(pdfPath, opts.Home.BookPDFPath(book.ID)); err != nil {
		return fmt.Errorf("filing pdf: %w", err)
	}

	return os.RemoveAll(uploadDir)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (e *UploadBookEndpoint) Command(_ func() string) *cobra.Command {
	// Multipart upload from the CLI goes through curl.
	return nil
}
