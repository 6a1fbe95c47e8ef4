package extraction

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/threads"
	"github.com/familytales/memorybook-api/pkg/config"
	"github.com/familytales/memorybook-api/pkg/retry"
)

type service struct {
	threads     threads.Service
	ocr         OCRClient
	store       SourceStore
	cfg         config.OCRConfig
	limiter     *rate.Limiter
	policy      retry.Policy
	concurrency int
}

// NewService creates the extraction stage service. The limiter is shared
// across all concurrent item extractions so the collaborator sees a single
// request rate regardless of concurrency.
func NewService(threadService threads.Service, ocr OCRClient, store SourceStore, cfg config.OCRConfig, policy retry.Policy, concurrency int) Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &service{
		threads:     threadService,
		ocr:         ocr,
		store:       store,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		policy:      policy.WithClassifier(classifyCollaboratorError),
		concurrency: concurrency,
	}
}

// classifyCollaboratorError maps failures from both stage collaborators
// to retry classes: HTTP error codes from the source store, gRPC status
// codes from OCR. Quota and availability problems are transient; bad
// input is not.
func classifyCollaboratorError(err error) retry.Class {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 500 || apiErr.Code == 429 || apiErr.Code == 408 {
			return retry.ClassTransient
		}
		return retry.ClassPermanent
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return retry.ClassTransient
	}
	return retry.ClassPermanent
}

func (s *service) ExtractThread(ctx context.Context, threadID uint) error {
	items, err := s.threads.ListItems(ctx, threadID)
	if err != nil {
		return fmt.Errorf("listing items for thread %d: %w", threadID, err)
	}
	if len(items) == 0 {
		return fmt.Errorf("thread %d has no content items", threadID)
	}

	existing, err := s.threads.CurrentExtractions(ctx, threadID)
	if err != nil {
		return fmt.Errorf("loading current extractions for thread %d: %w", threadID, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range items {
		item := items[i]

		// A re-run never retires an existing revision. This is what keeps
		// user corrections alive across correction-then-reprocess cycles.
		if _, done := existing[item.ID]; done {
			continue
		}

		g.Go(func() error {
			extraction, err := s.extractItem(gctx, &item)
			if err != nil {
				return fmt.Errorf("item %d (ordinal %d): %w", item.ID, item.Ordinal, err)
			}
			return s.threads.SaveExtraction(gctx, extraction)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Printf("[DEBUG] Extraction complete for thread %d (%d items, %d already current)",
		threadID, len(items), len(existing))
	return nil
}

// extractItem produces the ExtractedText for a single item. Photos never
// hit the OCR collaborator; their caption is the narration text, or an
// empty extraction if no caption was provided.
func (s *service) extractItem(ctx context.Context, item *models.ContentItem) (*models.ExtractedText, error) {
	if !item.Kind.RequiresOCR() {
		method := models.ExtractionMethodCaption
		if item.Caption == "" {
			method = models.ExtractionMethodEmpty
		}
		return &models.ExtractedText{
			ContentItemID: item.ID,
			Text:          item.Caption,
			Confidence:    1.0,
			Method:        method,
		}, nil
	}

	if item.SourceRef == "" {
		return nil, fmt.Errorf("item has no source ref to extract from")
	}

	var image []byte
	err := s.policy.Do(ctx, "source fetch", func(ctx context.Context) error {
		data, err := s.store.Get(ctx, item.SourceRef)
		if err != nil {
			return err
		}
		image = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching source %q: %w", item.SourceRef, err)
	}

	var result *gcpResult
	err = s.policy.Do(ctx, "ocr extract", func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}

		r, err := s.ocr.Extract(callCtx, image, s.cfg.LanguageHints)
		if err != nil {
			return err
		}
		result = &gcpResult{text: r.Text, confidence: r.Confidence}
		return nil
	})
	if err != nil {
		return nil, err
	}

	extraction := &models.ExtractedText{
		ContentItemID: item.ID,
		Text:          result.text,
		Confidence:    result.confidence,
		Method:        models.ExtractionMethodOCR,
		NeedsReview:   result.confidence < s.cfg.ConfidenceThreshold,
	}
	if result.text == "" {
		extraction.Method = models.ExtractionMethodEmpty
		extraction.NeedsReview = true
	}
	if extraction.NeedsReview {
		log.Printf("[DEBUG] Item %d extraction flagged for review (confidence %.2f)", item.ID, result.confidence)
	}

	return extraction, nil
}

type gcpResult struct {
	text       string
	confidence float64
}
