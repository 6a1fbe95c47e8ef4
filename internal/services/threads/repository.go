package threads

import (
	"context"
	"errors"
	"fmt"

	"github.com/familytales/memorybook-api/internal/models"
	"gorm.io/gorm"
)

// Repository errors
var (
	ErrThreadNotFound     = errors.New("thread not found")
	ErrItemNotFound       = errors.New("content item not found")
	ErrExtractionNotFound = errors.New("extracted text not found")
	ErrScriptNotFound     = errors.New("narration script not found")
	ErrAssetNotFound      = errors.New("audio asset not found")
	ErrInvalidTransition  = errors.New("invalid thread status transition")
)

// Repository defines the interface for thread persistence
type Repository interface {
	CreateThread(ctx context.Context, thread *models.Thread) error
	GetThread(ctx context.Context, id uint) (*models.Thread, error)
	GetThreadWithItems(ctx context.Context, id uint) (*models.Thread, error)
	UpdateThread(ctx context.Context, thread *models.Thread) error
	UpdateThreadStatus(ctx context.Context, id uint, from, to models.ThreadStatus) error
	DeleteThread(ctx context.Context, id uint) error

	CreateItem(ctx context.Context, item *models.ContentItem) error
	GetItem(ctx context.Context, id uint) (*models.ContentItem, error)
	ListItemsByThread(ctx context.Context, threadID uint) ([]models.ContentItem, error)
	MaxOrdinal(ctx context.Context, threadID uint) (int, error)

	CreateExtraction(ctx context.Context, extraction *models.ExtractedText) error
	CurrentExtraction(ctx context.Context, itemID uint) (*models.ExtractedText, error)
	CurrentExtractionsByThread(ctx context.Context, threadID uint) ([]models.ExtractedText, error)

	GetScriptByThread(ctx context.Context, threadID uint) (*models.NarrationScript, error)
	GetAssetByThread(ctx context.Context, threadID uint) (*models.AudioAsset, error)
	ListSegmentsByThread(ctx context.Context, threadID uint) ([]models.SegmentEntry, error)

	ReplacePublication(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, entries []models.SegmentEntry) error
}

// repository implements Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new thread repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateThread(ctx context.Context, thread *models.Thread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *repository) GetThread(ctx context.Context, id uint) (*models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).First(&thread, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("getting thread: %w", err)
	}
	return &thread, nil
}

func (r *repository) GetThreadWithItems(ctx context.Context, id uint) (*models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC")
		}).
		First(&thread, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("getting thread with items: %w", err)
	}
	return &thread, nil
}

func (r *repository) UpdateThread(ctx context.Context, thread *models.Thread) error {
	return r.db.WithContext(ctx).Save(thread).Error
}

// UpdateThreadStatus performs a guarded status transition: the update only
// applies if the thread is still in the expected `from` state, so two
// concurrent runs cannot both advance the same thread.
func (r *repository) UpdateThreadStatus(ctx context.Context, id uint, from, to models.ThreadStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)

	if result.Error != nil {
		return fmt.Errorf("updating thread status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (r *repository) DeleteThread(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", id).Delete(&models.SegmentEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", id).Delete(&models.AudioAsset{}).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", id).Delete(&models.NarrationScript{}).Error; err != nil {
			return err
		}
		var itemIDs []uint
		if err := tx.Model(&models.ContentItem{}).Where("thread_id = ?", id).Pluck("id", &itemIDs).Error; err != nil {
			return err
		}
		if len(itemIDs) > 0 {
			if err := tx.Where("content_item_id IN ?", itemIDs).Delete(&models.ExtractedText{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("thread_id = ?", id).Delete(&models.ContentItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Thread{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrThreadNotFound
		}
		return nil
	})
}

func (r *repository) CreateItem(ctx context.Context, item *models.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) GetItem(ctx context.Context, id uint) (*models.ContentItem, error) {
	var item models.ContentItem
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("getting content item: %w", err)
	}
	return &item, nil
}

func (r *repository) ListItemsByThread(ctx context.Context, threadID uint) ([]models.ContentItem, error) {
	var items []models.ContentItem
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("ordinal ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing content items: %w", err)
	}
	return items, nil
}

func (r *repository) MaxOrdinal(ctx context.Context, threadID uint) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.ContentItem{}).
		Where("thread_id = ?", threadID).
		Select("MAX(ordinal)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("getting max ordinal: %w", err)
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

// CreateExtraction inserts a new revision and retires the previous
// current one in the same transaction, preserving the exactly-one-current
// invariant.
func (r *repository) CreateExtraction(ctx context.Context, extraction *models.ExtractedText) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev models.ExtractedText
		err := tx.Where("content_item_id = ? AND current = ?", extraction.ContentItemID, true).
			First(&prev).Error
		switch {
		case err == nil:
			extraction.Revision = prev.Revision + 1
			if err := tx.Model(&prev).Update("current", false).Error; err != nil {
				return fmt.Errorf("retiring previous revision: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			extraction.Revision = 1
		default:
			return fmt.Errorf("finding current revision: %w", err)
		}

		extraction.Current = true
		return tx.Create(extraction).Error
	})
}

func (r *repository) CurrentExtraction(ctx context.Context, itemID uint) (*models.ExtractedText, error) {
	var extraction models.ExtractedText
	err := r.db.WithContext(ctx).
		Where("content_item_id = ? AND current = ?", itemID, true).
		First(&extraction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExtractionNotFound
		}
		return nil, fmt.Errorf("getting current extraction: %w", err)
	}
	return &extraction, nil
}

func (r *repository) CurrentExtractionsByThread(ctx context.Context, threadID uint) ([]models.ExtractedText, error) {
	var extractions []models.ExtractedText
	err := r.db.WithContext(ctx).
		Joins("JOIN content_items ON content_items.id = extracted_texts.content_item_id").
		Where("content_items.thread_id = ? AND extracted_texts.current = ?", threadID, true).
		Find(&extractions).Error
	if err != nil {
		return nil, fmt.Errorf("listing current extractions: %w", err)
	}
	return extractions, nil
}

func (r *repository) GetScriptByThread(ctx context.Context, threadID uint) (*models.NarrationScript, error) {
	var script models.NarrationScript
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&script).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScriptNotFound
		}
		return nil, fmt.Errorf("getting narration script: %w", err)
	}
	return &script, nil
}

func (r *repository) GetAssetByThread(ctx context.Context, threadID uint) (*models.AudioAsset, error) {
	var asset models.AudioAsset
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("getting audio asset: %w", err)
	}
	return &asset, nil
}

func (r *repository) ListSegmentsByThread(ctx context.Context, threadID uint) ([]models.SegmentEntry, error) {
	var entries []models.SegmentEntry
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("position ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing segment entries: %w", err)
	}
	return entries, nil
}

// ReplacePublication swaps the thread's script, asset and segment map in
// one transaction and moves the thread to ready. Stale rows from a prior
// run are removed inside the same transaction, so no reader ever sees
// segment entries referencing old script offsets.
func (r *repository) ReplacePublication(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, entries []models.SegmentEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("thread_id = ?", threadID).Delete(&models.SegmentEntry{}).Error; err != nil {
			return fmt.Errorf("deleting old segment entries: %w", err)
		}
		if err := tx.Where("thread_id = ?", threadID).Delete(&models.AudioAsset{}).Error; err != nil {
			return fmt.Errorf("deleting old audio asset: %w", err)
		}
		if err := tx.Where("thread_id = ?", threadID).Delete(&models.NarrationScript{}).Error; err != nil {
			return fmt.Errorf("deleting old narration script: %w", err)
		}

		script.ThreadID = threadID
		if err := tx.Create(script).Error; err != nil {
			return fmt.Errorf("creating narration script: %w", err)
		}
		asset.ThreadID = threadID
		if err := tx.Create(asset).Error; err != nil {
			return fmt.Errorf("creating audio asset: %w", err)
		}
		for i := range entries {
			entries[i].ThreadID = threadID
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return fmt.Errorf("creating segment entries: %w", err)
			}
		}

		result := tx.Model(&models.Thread{}).
			Where("id = ? AND status = ?", threadID, models.ThreadStatusPublishing).
			Update("status", models.ThreadStatusReady)
		if result.Error != nil {
			return fmt.Errorf("marking thread ready: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
}
