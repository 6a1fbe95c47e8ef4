package threads

import (
	"github.com/gin-gonic/gin"

	"github.com/familytales/memorybook-api/api/types"
)

// RegisterRoutes registers thread routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// POST /api/v1/threads - Create a draft thread
	router.POST("", CreateThread(deps))

	// GET /api/v1/threads/:id - Get thread with its items
	router.GET("/:id", GetThread(deps))

	// DELETE /api/v1/threads/:id - Delete a thread (cancels a running assembly)
	router.DELETE("/:id", DeleteThread(deps))

	// POST /api/v1/threads/:id/items - Append a content item
	router.POST("/:id/items", AddItem(deps))

	// POST /api/v1/threads/:id/process - Enqueue the assembly pipeline
	router.POST("/:id/process", ProcessThread(deps))

	// GET /api/v1/threads/:id/status - Pipeline status and failure detail
	router.GET("/:id/status", GetStatus(deps))

	// GET /api/v1/threads/:id/segments - Published segment map
	router.GET("/:id/segments", GetSegments(deps))
}

// RegisterItemRoutes registers item-scoped routes
func RegisterItemRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// PUT /api/v1/items/:id/text - Correct an item's extracted text
	router.PUT("/:id/text", CorrectItemText(deps))
}
