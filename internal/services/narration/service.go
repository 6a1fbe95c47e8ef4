package narration

import (
	"context"
	"fmt"
	"log"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/threads"
)

// Service runs the normalization stage for a thread
type Service interface {
	// BuildScript normalizes the thread's current extracted texts into a
	// narration script. The script is returned, not persisted; it is
	// published atomically with the audio and segment map at the end of
	// the pipeline.
	BuildScript(ctx context.Context, threadID uint) (*models.NarrationScript, error)
}

type service struct {
	threads threads.Service
}

// NewService creates the normalization stage service
func NewService(threadService threads.Service) Service {
	return &service{threads: threadService}
}

func (s *service) BuildScript(ctx context.Context, threadID uint) (*models.NarrationScript, error) {
	items, err := s.threads.ListItems(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("listing items for thread %d: %w", threadID, err)
	}

	extractions, err := s.threads.CurrentExtractions(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("loading extractions for thread %d: %w", threadID, err)
	}

	script, err := Normalize(threadID, items, extractions)
	if err != nil {
		return nil, err
	}

	log.Printf("[DEBUG] Normalized thread %d: %d blocks (%d narrated), %d chars",
		threadID, len(script.Blocks), script.NarratedLen(), len(script.Text))
	return script, nil
}
