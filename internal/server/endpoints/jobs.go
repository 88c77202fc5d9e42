package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/lazyreader/textbookd/internal/api"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/svcctx"
)

// ListJobsResponse is the response for listing jobs.
type ListJobsResponse struct {
	Jobs []store.JobRecord `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

var _ api.Endpoint = (*ListJobsEndpoint)(nil)

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List jobs
//	@Description	List background jobs, optionally filtered by status
//	@Tags			jobs
//	@Produce		json
//	@Param			status	query	string	false	"Filter by status (pending, running, completed, failed)"
//	@Success		200	{object}	ListJobsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	status := r.URL.Query().Get("status")
	jobList, err := s.ListJobs(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: jobList})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list-jobs",
		Short: "List background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/jobs"
			if status != "" {
				path += "?status=" + status
			}
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

var _ api.Endpoint = (*GetJobEndpoint)(nil)

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a job
//	@Description	Get one background job by id
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path	string	true	"Job ID"
//	@Success		200	{object}	store.JobRecord
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id} [get]
func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s := svcctx.StoreFrom(r.Context())
	if s == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	job, err := s.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get-job <job-id>",
		Short: "Get a background job by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp store.JobRecord
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
