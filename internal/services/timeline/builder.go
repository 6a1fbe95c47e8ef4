package timeline

import (
	"fmt"

	"github.com/familytales/memorybook-api/internal/models"
	pkgerrors "github.com/familytales/memorybook-api/pkg/errors"
)

// Build maps every script block to a time range of the audio clip,
// producing the thread's segment map in block order.
//
// Narrated segments are contiguous: a block's end is the moment the next
// narrated block begins (separator silence belongs to the earlier item),
// and the last narrated block closes at the clip's full duration. Skip
// blocks become zero-duration entries anchored at the preceding narrated
// end, so a player can still jump to "this moment" without attempting
// playback.
//
// A timing index that does not cover the full script is a bug in the
// synthesizer, not a runtime condition; it fails fast.
func Build(script *models.NarrationScript, index models.TimingIndex, duration float64) ([]models.SegmentEntry, error) {
	if len(script.Blocks) == 0 {
		return nil, pkgerrors.ContractViolation("timeline", "script has no blocks")
	}
	if err := index.Validate(len(script.Text)); err != nil {
		return nil, pkgerrors.ContractViolation("timeline",
			fmt.Sprintf("timing index does not cover script: %v", err))
	}

	// Start offsets of narrated blocks after each position, used to close
	// a narrated segment at its successor's start.
	nextStart := make([]int, len(script.Blocks))
	next := len(script.Text)
	for i := len(script.Blocks) - 1; i >= 0; i-- {
		nextStart[i] = next
		if !script.Blocks[i].Skip {
			next = script.Blocks[i].StartOffset
		}
	}

	entries := make([]models.SegmentEntry, 0, len(script.Blocks))
	prevEnd := 0.0
	seenNarrated := false

	for i, block := range script.Blocks {
		if block.Skip {
			entries = append(entries, models.SegmentEntry{
				ThreadID:      script.ThreadID,
				ContentItemID: block.ContentItemID,
				Position:      i,
				StartSeconds:  prevEnd,
				EndSeconds:    prevEnd,
				ZeroDuration:  true,
			})
			continue
		}

		start := timeAt(index, block.StartOffset, duration)
		end := timeAt(index, nextStart[i], duration)
		if nextStart[i] == len(script.Text) {
			end = duration
		}

		// Monotonicity is enforced, not assumed.
		if !seenNarrated {
			start = 0
		}
		if start < prevEnd {
			start = prevEnd
		}
		if end < start {
			end = start
		}
		if end > duration {
			end = duration
		}

		entries = append(entries, models.SegmentEntry{
			ThreadID:      script.ThreadID,
			ContentItemID: block.ContentItemID,
			Position:      i,
			StartSeconds:  start,
			EndSeconds:    end,
		})
		prevEnd = end
		seenNarrated = true
	}

	return entries, nil
}

// timeAt converts a script offset into audio time by linearly
// interpolating within the bracketing timing span.
func timeAt(index models.TimingIndex, offset int, duration float64) float64 {
	if offset <= index[0].StartOffset {
		return index[0].StartTime
	}
	last := index[len(index)-1]
	if offset >= last.EndOffset {
		return last.EndTime
	}

	for _, span := range index {
		if offset < span.StartOffset || offset > span.EndOffset {
			continue
		}
		width := span.EndOffset - span.StartOffset
		if width == 0 {
			return span.StartTime
		}
		frac := float64(offset-span.StartOffset) / float64(width)
		return span.StartTime + frac*(span.EndTime-span.StartTime)
	}

	// Offsets between spans (inside a gap) snap to the next span's start.
	for _, span := range index {
		if offset < span.StartOffset {
			return span.StartTime
		}
	}
	return duration
}
