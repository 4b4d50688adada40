package handler

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/scheduler"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// JobScheduler runs the background sweeps on demand
type JobScheduler interface {
	TriggerNow(name string) error
	Snapshot() map[string]scheduler.JobStats
}

// JobsHandler lets operators inspect and kick the background jobs
type JobsHandler struct {
	BaseHandler
	jobs JobScheduler
}

// NewJobsHandler creates a new JobsHandler
func NewJobsHandler(jobs JobScheduler) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// JobResponse is one job's run history
type JobResponse struct {
	Name      string     `json:"name"`
	Runs      int64      `json:"runs"`
	Failures  int64      `json:"failures"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// List returns every registered job sorted by name
func (h *JobsHandler) List(c *gin.Context) {
	snap := h.jobs.Snapshot()
	out := make([]JobResponse, 0, len(snap))
	for name, st := range snap {
		jr := JobResponse{Name: name, Runs: st.Runs, Failures: st.Failures, LastError: st.LastError}
		if !st.LastRun.IsZero() {
			last := st.LastRun
			jr.LastRun = &last
		}
		out = append(out, jr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	h.Success(c, out)
}

// Run starts a job outside its schedule and answers 202 without waiting
func (h *JobsHandler) Run(c *gin.Context) {
	name := c.Param("name")
	err := h.jobs.TriggerNow(name)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		h.HandleError(c, shared.ErrNotFound.WithDetail("job", name))
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		h.HandleError(c, shared.ErrInvalidState.WithDetail("job", name))
	case err != nil:
		h.HandleError(c, err)
	default:
		c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"job": name}))
	}
}
