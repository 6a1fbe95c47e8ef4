package synthesis

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/familytales/memorybook-api/internal/clients/gcp"
	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/pkg/config"
	"github.com/familytales/memorybook-api/pkg/retry"
	"github.com/familytales/memorybook-api/pkg/wav"
)

type service struct {
	tts     TTSClient
	cfg     config.TTSConfig
	limiter *rate.Limiter
	policy  retry.Policy
}

// NewService creates the synthesis stage service
func NewService(tts TTSClient, cfg config.TTSConfig, policy retry.Policy) Service {
	return &service{
		tts:     tts,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		policy:  policy.WithClassifier(classifyTTSError),
	}
}

func classifyTTSError(err error) retry.Class {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return retry.ClassTransient
	}
	return retry.ClassPermanent
}

// chunk is a run of consecutive narrated blocks sent in one TTS request
type chunk struct {
	blocks []models.ScriptBlock
	chars  int
}

func (s *service) Synthesize(ctx context.Context, script *models.NarrationScript) (*models.AudioAsset, []byte, error) {
	narrated := narratedBlocks(script)
	if len(narrated) == 0 {
		return nil, nil, fmt.Errorf("script for thread %d has no narrated text", script.ThreadID)
	}

	chunks := chunkBlocks(narrated, s.cfg.MaxRequestChars)

	var (
		pcm       []byte
		base      float64 // start time of the current chunk in the stitched clip
		markTimes = make(map[uint]float64, len(narrated))
	)

	for i, c := range chunks {
		result, err := s.synthesizeChunk(ctx, c)
		if err != nil {
			return nil, nil, fmt.Errorf("synthesizing chunk %d/%d: %w", i+1, len(chunks), err)
		}

		for _, tp := range result.Timepoints {
			blockID, ok := parseMark(tp.Mark)
			if !ok {
				continue
			}
			markTimes[blockID] = base + tp.Seconds
		}

		samples := wav.StripHeader(result.Audio)
		pcm = append(pcm, samples...)
		base += wav.PCMDuration(samples, s.cfg.SampleRate)
	}

	duration := wav.PCMDuration(pcm, s.cfg.SampleRate)

	var index models.TimingIndex
	estimated := false
	if len(markTimes) == len(narrated) {
		index = indexFromMarks(script, narrated, markTimes, duration)
	} else {
		// Provider returned no (or partial) timepoints. Fall back to a
		// deterministic proportional estimate weighted by character
		// count and pacing.
		index = proportionalIndex(script, narrated, duration)
		estimated = true
		log.Printf("[DEBUG] Thread %d: %d/%d timepoints returned, using proportional timing estimate",
			script.ThreadID, len(markTimes), len(narrated))
	}

	if err := index.Validate(len(script.Text)); err != nil {
		return nil, nil, fmt.Errorf("built timing index is invalid: %w", err)
	}

	asset := &models.AudioAsset{
		ThreadID:    script.ThreadID,
		AssetRef:    fmt.Sprintf("narrations/%s.wav", uuid.NewString()),
		Duration:    duration,
		TimingIndex: index,
		Estimated:   estimated,
		Voice:       s.cfg.Voice,
		SampleRate:  s.cfg.SampleRate,
	}

	log.Printf("[DEBUG] Synthesized thread %d: %.2fs audio across %d chunks", script.ThreadID, duration, len(chunks))
	return asset, wav.Build(pcm, s.cfg.SampleRate), nil
}

func (s *service) synthesizeChunk(ctx context.Context, c chunk) (*gcp.SpeechResult, error) {
	ssml := buildSSML(c.blocks)
	voice := gcp.VoiceConfig{
		Name:         s.cfg.Voice,
		LanguageCode: s.cfg.LanguageCode,
		SpeakingRate: s.cfg.SpeakingRate,
		SampleRate:   s.cfg.SampleRate,
	}

	var result *gcp.SpeechResult
	err := s.policy.Do(ctx, "tts synthesize", func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}

		r, err := s.tts.Synthesize(callCtx, ssml, voice)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func narratedBlocks(script *models.NarrationScript) []models.ScriptBlock {
	narrated := make([]models.ScriptBlock, 0, len(script.Blocks))
	for _, b := range script.Blocks {
		if !b.Skip {
			narrated = append(narrated, b)
		}
	}
	return narrated
}

// chunkBlocks greedily packs consecutive blocks into requests under the
// provider's text budget. A block is never split; a single oversized
// block goes out alone and the provider's rejection, if any, surfaces as
// a permanent error.
func chunkBlocks(blocks []models.ScriptBlock, maxChars int) []chunk {
	if maxChars <= 0 {
		return []chunk{{blocks: blocks}}
	}

	var chunks []chunk
	current := chunk{}
	for _, b := range blocks {
		if len(current.blocks) > 0 && current.chars+len(b.Text) > maxChars {
			chunks = append(chunks, current)
			current = chunk{}
		}
		current.blocks = append(current.blocks, b)
		current.chars += len(b.Text)
	}
	if len(current.blocks) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// buildSSML wraps the chunk's blocks in a speak element with one named
// mark at each block start. Mark names carry the source item id so
// timepoints can be matched back to blocks after stitching.
func buildSSML(blocks []models.ScriptBlock) string {
	var sb strings.Builder
	sb.WriteString("<speak>")
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, `<mark name="b%d"/>`, b.ContentItemID)
		sb.WriteString(ssmlEscaper.Replace(b.Text))
	}
	sb.WriteString("</speak>")
	return sb.String()
}

func parseMark(name string) (uint, bool) {
	if !strings.HasPrefix(name, "b") {
		return 0, false
	}
	var id uint
	if _, err := fmt.Sscanf(name, "b%d", &id); err != nil {
		return 0, false
	}
	return id, true
}

// indexFromMarks builds the timing index from provider timepoints. Each
// narrated block's span runs from its start offset to the next narrated
// block's start offset (covering the separator), and from its mark time
// to the next mark time. The first span is pinned to offset 0 and time
// 0; the last span closes at the script end and total duration.
func indexFromMarks(script *models.NarrationScript, narrated []models.ScriptBlock, markTimes map[uint]float64, duration float64) models.TimingIndex {
	index := make(models.TimingIndex, 0, len(narrated))
	for i, b := range narrated {
		span := models.TimingSpan{
			StartOffset: b.StartOffset,
			EndOffset:   len(script.Text),
			StartTime:   markTimes[b.ContentItemID],
			EndTime:     duration,
		}
		if i == 0 {
			span.StartOffset = 0
			span.StartTime = 0
		}
		if i < len(narrated)-1 {
			next := narrated[i+1]
			span.EndOffset = next.StartOffset
			span.EndTime = markTimes[next.ContentItemID]
		}

		// Providers occasionally report marks a hair out of order;
		// monotonicity is enforced, not assumed.
		if len(index) > 0 {
			prev := index[len(index)-1]
			if span.StartTime < prev.EndTime {
				span.StartTime = prev.EndTime
			}
		}
		if span.EndTime < span.StartTime {
			span.EndTime = span.StartTime
		}
		index = append(index, span)
	}
	return index
}

// proportionalIndex allocates audio time to blocks proportional to their
// character count weighted by the pacing multiplier.
func proportionalIndex(script *models.NarrationScript, narrated []models.ScriptBlock, duration float64) models.TimingIndex {
	total := 0.0
	for _, b := range narrated {
		total += float64(len(b.Text)) * b.Pacing.Multiplier()
	}
	if total <= 0 {
		total = 1
	}

	index := make(models.TimingIndex, 0, len(narrated))
	elapsed := 0.0
	for i, b := range narrated {
		share := duration * (float64(len(b.Text)) * b.Pacing.Multiplier()) / total

		span := models.TimingSpan{
			StartOffset: b.StartOffset,
			EndOffset:   len(script.Text),
			StartTime:   elapsed,
			EndTime:     elapsed + share,
		}
		if i == 0 {
			span.StartOffset = 0
		}
		if i < len(narrated)-1 {
			span.EndOffset = narrated[i+1].StartOffset
		} else {
			span.EndTime = duration
		}
		index = append(index, span)
		elapsed = span.EndTime
	}
	return index
}
