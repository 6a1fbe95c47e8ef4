package threads

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/models"
	threadsService "github.com/familytales/memorybook-api/internal/services/threads"
)

// StatusResponse reports where a thread is in the pipeline
type StatusResponse struct {
	ThreadID uint                `json:"thread_id"`
	Status   models.ThreadStatus `json:"status"`

	// Set only when the status is failed. RetryNeedsUserAction tells
	// the client whether resubmitting as-is can succeed or whether the
	// user must correct something first.
	FailedStage          string             `json:"failed_stage,omitempty"`
	FailureReason        string             `json:"failure_reason,omitempty"`
	FailureKind          models.FailureKind `json:"failure_kind,omitempty"`
	RetryNeedsUserAction *bool              `json:"retry_needs_user_action,omitempty"`

	JobProgress *int `json:"job_progress,omitempty"`
}

// GetStatus returns the processing status of a thread
// @Summary Get processing status
// @Tags threads
// @Produce json
// @Param id path int true "Thread ID"
// @Success 200 {object} StatusResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/threads/{id}/status [get]
func GetStatus(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()

		thread, err := deps.ThreadService.GetThread(ctx, id)
		if err != nil {
			if errors.Is(err, threadsService.ErrThreadNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load thread"})
			return
		}

		resp := StatusResponse{
			ThreadID: thread.ID,
			Status:   thread.Status,
		}

		if thread.Status == models.ThreadStatusFailed {
			resp.FailedStage = thread.FailedStage
			resp.FailureReason = thread.FailureReason
			resp.FailureKind = thread.FailureKind

			// Transient exhaustion can be retried as-is; permanent and
			// contract failures need user or operator attention first.
			needsAction := thread.FailureKind != models.FailureKindTransientExhausted
			resp.RetryNeedsUserAction = &needsAction
		}

		if thread.Status.IsProcessing() {
			if job, err := deps.JobService.GetJobForThread(ctx, id); err == nil && job != nil {
				progress := job.Progress
				resp.JobProgress = &progress
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}
