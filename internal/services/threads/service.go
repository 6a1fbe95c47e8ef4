package threads

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/familytales/memorybook-api/internal/models"
)

type service struct {
	repo Repository
}

// NewService creates a new thread service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread == nil {
		return errors.New("thread cannot be nil")
	}
	if thread.Title == "" {
		return errors.New("thread title is required")
	}
	thread.Status = models.ThreadStatusDraft
	return s.repo.CreateThread(ctx, thread)
}

func (s *service) GetThread(ctx context.Context, threadID uint) (*models.Thread, error) {
	return s.repo.GetThread(ctx, threadID)
}

func (s *service) GetThreadWithItems(ctx context.Context, threadID uint) (*models.Thread, error) {
	return s.repo.GetThreadWithItems(ctx, threadID)
}

func (s *service) DeleteThread(ctx context.Context, threadID uint) error {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}

	// A thread mid-processing is cancelled cooperatively: the pipeline
	// sees the flag at its next stage boundary and releases without
	// publishing. Deletion of the rows happens now either way; the run
	// aborts before writing anything new.
	if thread.Status.IsProcessing() {
		if err := s.RequestCancel(ctx, threadID); err != nil {
			return err
		}
	}

	return s.repo.DeleteThread(ctx, threadID)
}

func (s *service) AddItem(ctx context.Context, threadID uint, item *models.ContentItem) error {
	if item == nil {
		return errors.New("content item cannot be nil")
	}
	if !models.ValidKind(item.Kind) {
		return fmt.Errorf("unknown content kind %q", item.Kind)
	}

	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.Editable() {
		return fmt.Errorf("thread %d is %s; items cannot be added", threadID, thread.Status)
	}

	maxOrdinal, err := s.repo.MaxOrdinal(ctx, threadID)
	if err != nil {
		return err
	}

	item.ThreadID = threadID
	item.Ordinal = maxOrdinal + 1
	return s.repo.CreateItem(ctx, item)
}

func (s *service) ListItems(ctx context.Context, threadID uint) ([]models.ContentItem, error) {
	return s.repo.ListItemsByThread(ctx, threadID)
}

func (s *service) GetItem(ctx context.Context, itemID uint) (*models.ContentItem, error) {
	return s.repo.GetItem(ctx, itemID)
}

func (s *service) Transition(ctx context.Context, threadID uint, next models.ThreadStatus) error {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, thread.Status, next)
	}
	return s.repo.UpdateThreadStatus(ctx, threadID, thread.Status, next)
}

func (s *service) MarkFailed(ctx context.Context, threadID uint, stage string, reason string, kind models.FailureKind) error {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !thread.Status.CanTransitionTo(models.ThreadStatusFailed) {
		return fmt.Errorf("%w: %s -> failed", ErrInvalidTransition, thread.Status)
	}

	thread.Status = models.ThreadStatusFailed
	thread.FailedStage = stage
	thread.FailureReason = reason
	thread.FailureKind = kind

	log.Printf("[ERROR] Thread %d failed at stage %s (%s): %s", threadID, stage, kind, reason)

	return s.repo.UpdateThread(ctx, thread)
}

func (s *service) RequestCancel(ctx context.Context, threadID uint) error {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	thread.Cancelled = true
	return s.repo.UpdateThread(ctx, thread)
}

func (s *service) IsCancelled(ctx context.Context, threadID uint) (bool, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		// A deleted thread counts as cancelled: the run must abort.
		if errors.Is(err, ErrThreadNotFound) {
			return true, nil
		}
		return false, err
	}
	return thread.Cancelled, nil
}

func (s *service) SaveExtraction(ctx context.Context, extraction *models.ExtractedText) error {
	if extraction == nil {
		return errors.New("extraction cannot be nil")
	}
	if extraction.Confidence < 0 || extraction.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range [0,1]", extraction.Confidence)
	}
	return s.repo.CreateExtraction(ctx, extraction)
}

func (s *service) CurrentExtractions(ctx context.Context, threadID uint) (map[uint]*models.ExtractedText, error) {
	extractions, err := s.repo.CurrentExtractionsByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	byItem := make(map[uint]*models.ExtractedText, len(extractions))
	for i := range extractions {
		byItem[extractions[i].ContentItemID] = &extractions[i]
	}
	return byItem, nil
}

// CorrectItemText records a user correction as a new current revision and
// returns the thread to draft so the pipeline can be re-run against it.
func (s *service) CorrectItemText(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	thread, err := s.repo.GetThread(ctx, item.ThreadID)
	if err != nil {
		return nil, err
	}
	if thread.Status.IsProcessing() {
		return nil, fmt.Errorf("thread %d is processing; corrections must wait for the run to finish", thread.ID)
	}

	extraction := &models.ExtractedText{
		ContentItemID: itemID,
		Text:          text,
		Confidence:    1.0,
		Method:        models.ExtractionMethodUser,
		NeedsReview:   false,
	}
	if err := s.repo.CreateExtraction(ctx, extraction); err != nil {
		return nil, err
	}

	// A corrected ready/failed thread drops back to draft; its published
	// outputs remain visible until the next run replaces them atomically.
	if thread.Status == models.ThreadStatusReady || thread.Status == models.ThreadStatusFailed {
		if err := s.repo.UpdateThreadStatus(ctx, thread.ID, thread.Status, models.ThreadStatusDraft); err != nil {
			return nil, err
		}
	}

	log.Printf("[DEBUG] Item %d corrected (revision %d); thread %d back to draft", itemID, extraction.Revision, thread.ID)

	return extraction, nil
}

func (s *service) GetNarrationScript(ctx context.Context, threadID uint) (*models.NarrationScript, error) {
	return s.repo.GetScriptByThread(ctx, threadID)
}

func (s *service) GetAudioAsset(ctx context.Context, threadID uint) (*models.AudioAsset, error) {
	return s.repo.GetAssetByThread(ctx, threadID)
}

func (s *service) GetSegmentMap(ctx context.Context, threadID uint) ([]models.SegmentEntry, error) {
	return s.repo.ListSegmentsByThread(ctx, threadID)
}

func (s *service) ReplacePublication(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, entries []models.SegmentEntry) error {
	return s.repo.ReplacePublication(ctx, threadID, script, asset, entries)
}
