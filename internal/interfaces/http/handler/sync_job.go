package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/productsync"
	"github.com/stocksync/backend/internal/infrastructure/scheduler"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// JobScheduler is the part of the scheduler the admin API drives
type JobScheduler interface {
	Submit(sourceID int64, dry bool, options *productsync.SyncOptions, trigger scheduler.JobTrigger) (*scheduler.ProductSyncJob, error)
	Cancel(jobID uuid.UUID) error
	Job(jobID uuid.UUID) (scheduler.JobSnapshot, error)
	Logs(ctx context.Context, jobID uuid.UUID, from int) ([]string, error)
	Active() []scheduler.JobSnapshot
	History(limit int) []scheduler.JobSnapshot
}

// SourceLookup resolves sources before a job is queued
type SourceLookup interface {
	Get(ctx context.Context, id int64) (*productsync.StockDataSource, error)
}

// SyncJobHandler exposes the sync scheduler
type SyncJobHandler struct {
	BaseHandler
	scheduler JobScheduler
	sources   SourceLookup
}

// NewSyncJobHandler creates a SyncJobHandler
func NewSyncJobHandler(scheduler JobScheduler, sources SourceLookup) *SyncJobHandler {
	return &SyncJobHandler{scheduler: scheduler, sources: sources}
}

// Submit godoc
// @ID           submitSyncJob
// @Summary      Queue a sync run
// @Description  Queues a live or dry run for an active source. Options left unset fall back to the source's own.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body dto.SubmitSyncRequest true "Run request"
// @Success      202 {object} APIResponse[dto.SyncJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs [post]
func (h *SyncJobHandler) Submit(c *gin.Context) {
	var req dto.SubmitSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	// Unknown and inactive sources are rejected here rather than failing in the queue
	source, err := h.sources.Get(c.Request.Context(), req.SourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !source.Active {
		h.HandleError(c, productsync.ErrSourceInactive)
		return
	}

	job, err := h.scheduler.Submit(req.SourceID, req.Dry, req.Options(), scheduler.JobTriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.ToSyncJobResponse(job.Snapshot()))
}

// List godoc
// @ID           listSyncJobs
// @Summary      List sync jobs
// @Description  Returns queued and running jobs plus the most recent finished ones
// @Tags         sync
// @Produce      json
// @Param        limit query int false "Finished jobs to return" default(20)
// @Success      200 {object} APIResponse[dto.SyncJobListResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs [get]
func (h *SyncJobHandler) List(c *gin.Context) {
	limit, ok := h.intQuery(c, "limit", 20)
	if !ok {
		return
	}
	h.Success(c, dto.SyncJobListResponse{
		Active:  dto.ToSyncJobResponses(h.scheduler.Active()),
		History: dto.ToSyncJobResponses(h.scheduler.History(limit)),
	})
}

// Get godoc
// @ID           getSyncJob
// @Summary      Get a sync job
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      200 {object} APIResponse[dto.SyncJobResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id} [get]
func (h *SyncJobHandler) Get(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}
	snap, err := h.scheduler.Job(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToSyncJobResponse(snap))
}

// Logs godoc
// @ID           getSyncJobLogs
// @Summary      Read a job's log
// @Description  Returns log lines from offset from. Clients poll with from set to the previous response's next until done is true.
// @Tags         sync
// @Produce      json
// @Param        id   path  string true  "Job ID" format(uuid)
// @Param        from query int    false "First line to return" default(0)
// @Success      200 {object} APIResponse[dto.SyncJobLogsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id}/logs [get]
func (h *SyncJobHandler) Logs(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}
	from, ok := h.intQuery(c, "from", 0)
	if !ok {
		return
	}

	// Read the status first so a finished job's last page is never reported as partial
	snap, err := h.scheduler.Job(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	lines, err := h.scheduler.Logs(c.Request.Context(), id, from)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	h.Success(c, dto.SyncJobLogsResponse{
		From:  from,
		Next:  from + len(lines),
		Lines: lines,
		Done:  snap.Status.IsFinal(),
	})
}

// Cancel godoc
// @ID           cancelSyncJob
// @Summary      Cancel a sync job
// @Description  Drops a queued job or asks a running one to stop after the current variant
// @Tags         sync
// @Produce      json
// @Param        id path string true "Job ID" format(uuid)
// @Success      202 {object} APIResponse[dto.SyncJobResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /sync/jobs/{id}/cancel [post]
func (h *SyncJobHandler) Cancel(c *gin.Context) {
	id, ok := h.parseJobID(c)
	if !ok {
		return
	}
	if err := h.scheduler.Cancel(id); err != nil {
		h.HandleError(c, err)
		return
	}
	snap, err := h.scheduler.Job(id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, dto.ToSyncJobResponse(snap))
}
