package threads

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/models"
	threadsService "github.com/familytales/memorybook-api/internal/services/threads"
)

// SegmentMapResponse is the published segment map for a ready thread
type SegmentMapResponse struct {
	ThreadID    uint                  `json:"thread_id"`
	PlayableURL string                `json:"playable_url"`
	Duration    float64               `json:"duration"`
	Estimated   bool                  `json:"estimated"`
	Voice       string                `json:"voice"`
	Segments    []models.SegmentEntry `json:"segments"`
}

// GetSegments returns a ready thread's segment map and playable audio URL
// @Summary Get segment map
// @Description Returns the item-to-audio-time mapping; 409 unless the thread is ready
// @Tags threads
// @Produce json
// @Param id path int true "Thread ID"
// @Success 200 {object} SegmentMapResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/threads/{id}/segments [get]
func GetSegments(deps *types.Dependencies) gin.HandlerFunc {
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

		if thread.Status != models.ThreadStatusReady {
			c.JSON(http.StatusConflict, gin.H{
				"error":  "Thread has no published segment map",
				"status": thread.Status,
			})
			return
		}

		asset, err := deps.ThreadService.GetAudioAsset(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audio asset"})
			return
		}

		segments, err := deps.ThreadService.GetSegmentMap(ctx, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load segment map"})
			return
		}

		c.JSON(http.StatusOK, SegmentMapResponse{
			ThreadID:    id,
			PlayableURL: asset.PlayableURL,
			Duration:    asset.Duration,
			Estimated:   asset.Estimated,
			Voice:       asset.Voice,
			Segments:    segments,
		})
	}
}
