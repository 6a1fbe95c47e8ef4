package extraction

import (
	"context"

	"github.com/familytales/memorybook-api/internal/clients/gcp"
)

// OCRClient is the text extraction collaborator
type OCRClient interface {
	Extract(ctx context.Context, image []byte, languageHints []string) (*gcp.OCRResult, error)
}

// SourceStore fetches original item bytes by their source ref
type SourceStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Service runs the text extraction stage for a thread
type Service interface {
	// ExtractThread produces a current ExtractedText revision for every
	// item in the thread that does not already have one. Items are
	// processed concurrently; the first failure aborts the stage.
	ExtractThread(ctx context.Context, threadID uint) error
}
