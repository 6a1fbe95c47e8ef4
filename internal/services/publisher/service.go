package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/api/googleapi"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/threads"
	"github.com/familytales/memorybook-api/pkg/config"
	"github.com/familytales/memorybook-api/pkg/retry"
)

// Storage is the object storage collaborator
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// Service runs the packaging and publish stage for a thread
type Service interface {
	// Publish uploads the audio bytes under the asset's stable object
	// name, resolves the playable URL, and replaces the thread's script,
	// asset and segment map in one transaction. Either everything
	// becomes visible and the thread is ready, or nothing changes.
	Publish(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, audio []byte, entries []models.SegmentEntry) error
}

type service struct {
	threads threads.Service
	storage Storage
	cfg     config.StorageConfig
	policy  retry.Policy
}

// NewService creates the publish stage service
func NewService(threadService threads.Service, storage Storage, cfg config.StorageConfig, policy retry.Policy) Service {
	return &service{
		threads: threadService,
		storage: storage,
		cfg:     cfg,
		policy:  policy.WithClassifier(classifyStorageError),
	}
}

// classifyStorageError treats server-side and throttling failures as
// transient; anything else (bad bucket, auth) fails the run.
func classifyStorageError(err error) retry.Class {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 || apiErr.Code == 429 || apiErr.Code == 408 {
			return retry.ClassTransient
		}
		return retry.ClassPermanent
	}
	// Network-level failures with no structured code: retry.
	return retry.ClassTransient
}

func (s *service) Publish(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, audio []byte, entries []models.SegmentEntry) error {
	if asset.AssetRef == "" {
		return fmt.Errorf("asset for thread %d has no object name", threadID)
	}
	if len(audio) == 0 {
		return fmt.Errorf("no audio bytes to publish for thread %d", threadID)
	}

	// The object name is stable across retries of this stage, so a
	// persistence failure after a successful upload re-puts the same
	// bytes under the same key instead of orphaning a second object.
	err := s.policy.Do(ctx, "audio upload", func(ctx context.Context) error {
		putCtx := ctx
		if s.cfg.UploadTimeout > 0 {
			var cancel context.CancelFunc
			putCtx, cancel = context.WithTimeout(ctx, s.cfg.UploadTimeout)
			defer cancel()
		}
		return s.storage.Put(putCtx, asset.AssetRef, audio, "audio/wav")
	})
	if err != nil {
		return fmt.Errorf("uploading audio for thread %d: %w", threadID, err)
	}

	asset.PlayableURL = s.storage.PublicURL(asset.AssetRef)

	if err := s.threads.ReplacePublication(ctx, threadID, script, asset, entries); err != nil {
		return fmt.Errorf("persisting publication for thread %d: %w", threadID, err)
	}

	log.Printf("[DEBUG] Published thread %d: %s (%.2fs, %d segments)",
		threadID, asset.PlayableURL, asset.Duration, len(entries))
	return nil
}
