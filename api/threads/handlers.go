package threads

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/models"
	threadsService "github.com/familytales/memorybook-api/internal/services/threads"
)

// CreateThreadRequest is the payload for creating a thread
type CreateThreadRequest struct {
	Title        string  `json:"title" binding:"required"`
	Voice        string  `json:"voice"`
	LanguageCode string  `json:"language_code"`
	SpeakingRate float64 `json:"speaking_rate"`
}

// AddItemRequest is the payload for appending a content item
type AddItemRequest struct {
	Kind       string `json:"kind" binding:"required"`
	SourceRef  string `json:"source_ref"`
	Caption    string `json:"caption"`
	PageNumber int    `json:"page_number"`
}

// CorrectTextRequest is the payload for a user text correction
type CorrectTextRequest struct {
	Text string `json:"text" binding:"required"`
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

// CreateThread creates a new draft thread
// @Summary Create a thread
// @Tags threads
// @Accept json
// @Produce json
// @Param thread body CreateThreadRequest true "Thread to create"
// @Success 201 {object} models.Thread
// @Failure 400 {object} map[string]string
// @Router /api/v1/threads [post]
func CreateThread(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateThreadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		thread := &models.Thread{
			Title:        req.Title,
			Voice:        req.Voice,
			LanguageCode: req.LanguageCode,
			SpeakingRate: req.SpeakingRate,
		}
		if err := deps.ThreadService.CreateThread(c.Request.Context(), thread); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, thread)
	}
}

// GetThread returns a thread with its items
// @Summary Get thread detail
// @Tags threads
// @Produce json
// @Param id path int true "Thread ID"
// @Success 200 {object} models.Thread
// @Failure 404 {object} map[string]string
// @Router /api/v1/threads/{id} [get]
func GetThread(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		thread, err := deps.ThreadService.GetThreadWithItems(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, threadsService.ErrThreadNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load thread"})
			return
		}

		c.JSON(http.StatusOK, thread)
	}
}

// DeleteThread deletes a thread, cancelling any in-flight run
// @Summary Delete a thread
// @Tags threads
// @Param id path int true "Thread ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/threads/{id} [delete]
func DeleteThread(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if err := deps.ThreadService.DeleteThread(c.Request.Context(), id); err != nil {
			if errors.Is(err, threadsService.ErrThreadNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete thread"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// AddItem appends a content item to a thread
// @Summary Add a content item
// @Tags threads
// @Accept json
// @Produce json
// @Param id path int true "Thread ID"
// @Param item body AddItemRequest true "Item to add"
// @Success 201 {object} models.ContentItem
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/threads/{id}/items [post]
func AddItem(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item := &models.ContentItem{
			Kind:       models.ContentItemKind(req.Kind),
			SourceRef:  req.SourceRef,
			Caption:    req.Caption,
			PageNumber: req.PageNumber,
		}

		if err := deps.ThreadService.AddItem(c.Request.Context(), id, item); err != nil {
			switch {
			case errors.Is(err, threadsService.ErrThreadNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
			case !models.ValidKind(item.Kind):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				// Items cannot be added once processing has begun.
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

// CorrectItemText records a user correction for an item's extracted text
// @Summary Correct extracted text
// @Tags items
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param correction body CorrectTextRequest true "Corrected text"
// @Success 200 {object} models.ExtractedText
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/items/{id}/text [put]
func CorrectItemText(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req CorrectTextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		correction, err := deps.ThreadService.CorrectItemText(c.Request.Context(), id, req.Text)
		if err != nil {
			switch {
			case errors.Is(err, threadsService.ErrItemNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Content item not found"})
			case errors.Is(err, threadsService.ErrThreadNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Thread not found"})
			default:
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, correction)
	}
}
