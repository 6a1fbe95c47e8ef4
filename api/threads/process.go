package threads

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/models"
	threadsService "github.com/familytales/memorybook-api/internal/services/threads"
)

// ProcessThread submits a thread for assembly
// @Summary Submit a thread for processing
// @Description Enqueues the assembly pipeline for the thread and returns immediately
// @Tags threads
// @Produce json
// @Param id path int true "Thread ID"
// @Success 202 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/threads/{id}/process [post]
func ProcessThread(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		ctx := c.Request.Context()

		thread, err := deps.ThreadService.GetThreadWithItems(ctx, id)
		if err != nil {
			if errors.Is(err, threadsService.ErrThreadNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load thread"})
			return
		}

		if !thread.Editable() {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Thread is not in a submittable state",
				"status": thread.Status,
			})
			return
		}
		if len(thread.Items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Thread has no content items"})
			return
		}

		// A failed thread re-enters draft before its run restarts.
		if thread.Status == models.ThreadStatusFailed {
			if err := deps.ThreadService.Transition(ctx, id, models.ThreadStatusDraft); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset thread"})
				return
			}
		}

		payload := models.JobPayload{"thread_id": id}
		uniqueKey := fmt.Sprintf("assembly-thread-%d", id)
		job, err := deps.JobService.EnqueueUniqueJob(ctx, models.JobTypeMemoryBookAssembly, payload, uniqueKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue assembly job"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"thread_id": id,
			"job_id":    job.ID,
			"status":    job.Status,
		})
	}
}
