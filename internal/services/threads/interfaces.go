package threads

import (
	"context"

	"github.com/familytales/memorybook-api/internal/models"
)

// Service defines the business logic interface for thread operations
type Service interface {
	// Thread lifecycle
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, threadID uint) (*models.Thread, error)
	GetThreadWithItems(ctx context.Context, threadID uint) (*models.Thread, error)
	DeleteThread(ctx context.Context, threadID uint) error

	// Content items
	AddItem(ctx context.Context, threadID uint, item *models.ContentItem) error
	ListItems(ctx context.Context, threadID uint) ([]models.ContentItem, error)
	GetItem(ctx context.Context, itemID uint) (*models.ContentItem, error)

	// State machine. Transition validates against the pipeline order;
	// MarkFailed records stage and reason; RequestCancel flags a
	// cooperative cancellation checked between stages.
	Transition(ctx context.Context, threadID uint, next models.ThreadStatus) error
	MarkFailed(ctx context.Context, threadID uint, stage string, reason string, kind models.FailureKind) error
	RequestCancel(ctx context.Context, threadID uint) error
	IsCancelled(ctx context.Context, threadID uint) (bool, error)

	// Extracted text revisions
	SaveExtraction(ctx context.Context, extraction *models.ExtractedText) error
	CurrentExtractions(ctx context.Context, threadID uint) (map[uint]*models.ExtractedText, error)
	CorrectItemText(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error)

	// Pipeline outputs
	GetNarrationScript(ctx context.Context, threadID uint) (*models.NarrationScript, error)
	GetAudioAsset(ctx context.Context, threadID uint) (*models.AudioAsset, error)
	GetSegmentMap(ctx context.Context, threadID uint) ([]models.SegmentEntry, error)

	// ReplacePublication atomically replaces the thread's narration
	// script, audio asset and segment map and transitions it to ready.
	// Consumers never observe a partial update.
	ReplacePublication(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, entries []models.SegmentEntry) error
}
