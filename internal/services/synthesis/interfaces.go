package synthesis

import (
	"context"

	"github.com/familytales/memorybook-api/internal/clients/gcp"
	"github.com/familytales/memorybook-api/internal/models"
)

// TTSClient is the narration synthesis collaborator
type TTSClient interface {
	Synthesize(ctx context.Context, ssml string, voice gcp.VoiceConfig) (*gcp.SpeechResult, error)
}

// Service runs the synthesis stage for a thread
type Service interface {
	// Synthesize turns a narration script into one continuous audio clip
	// with a timing index. The returned asset has no playable URL yet;
	// the publisher uploads the WAV bytes and fills it in. Long scripts
	// are split across requests at block boundaries and stitched back
	// into a single clip.
	Synthesize(ctx context.Context, script *models.NarrationScript) (*models.AudioAsset, []byte, error)
}
