package narration

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/familytales/memorybook-api/internal/models"
	pkgerrors "github.com/familytales/memorybook-api/pkg/errors"
)

// Separator joins narrated blocks in the script text. Its length is
// recorded on the script so the timeline builder works from exact
// offsets rather than a re-derived approximation. Changing it
// invalidates every published timing index, so don't.
const Separator = "\n\n"

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalize builds the narration script for a thread from its items and
// their current extracted texts. Items must already be in ordinal order.
// The result is deterministic: unchanged inputs produce byte-identical
// script text, which makes re-runs after downstream failures safe.
//
// An item with no current extraction is a broken pipeline contract, not
// a recoverable condition.
func Normalize(threadID uint, items []models.ContentItem, extractions map[uint]*models.ExtractedText) (*models.NarrationScript, error) {
	if len(items) == 0 {
		return nil, pkgerrors.ContractViolation("normalizer", "thread has no content items")
	}

	var sb strings.Builder
	blocks := make(models.BlockList, 0, len(items))
	narrated := 0

	for i := range items {
		item := &items[i]

		extraction, ok := extractions[item.ID]
		if !ok {
			return nil, pkgerrors.ContractViolation("normalizer",
				fmt.Sprintf("content item %d has no current extracted text", item.ID))
		}

		text, pacing := blockFor(item, extraction.Text)

		if text == "" {
			// Skip blocks carry no narration. They anchor at the current
			// cursor so the timeline can pin them to the preceding
			// block's end time.
			blocks = append(blocks, models.ScriptBlock{
				ContentItemID: item.ID,
				Pacing:        models.PacingSkipSilent,
				StartOffset:   sb.Len(),
				EndOffset:     sb.Len(),
				Skip:          true,
			})
			continue
		}

		if narrated > 0 {
			sb.WriteString(Separator)
		}
		start := sb.Len()
		sb.WriteString(text)

		blocks = append(blocks, models.ScriptBlock{
			ContentItemID: item.ID,
			Text:          text,
			Pacing:        pacing,
			StartOffset:   start,
			EndOffset:     sb.Len(),
		})
		narrated++
	}

	return &models.NarrationScript{
		ThreadID:     threadID,
		Text:         sb.String(),
		SeparatorLen: len(Separator),
		Blocks:       blocks,
	}, nil
}

// blockFor applies the per-kind pacing and formatting rules. The kind
// set is closed; a new kind must be handled here explicitly.
func blockFor(item *models.ContentItem, raw string) (string, models.PacingHint) {
	switch item.Kind {
	case models.KindRecipe:
		return normalizeRecipe(raw), models.PacingSlow
	case models.KindPhoto:
		return cleanText(raw), models.PacingCaptionOnly
	case models.KindHandwritten, models.KindTyped:
		return cleanText(raw), models.PacingNormal
	default:
		// Unreachable while ValidKind gates item creation.
		return cleanText(raw), models.PacingNormal
	}
}

// cleanText canonicalizes whitespace so that repeated normalization is a
// no-op: CRLF becomes LF, runs of spaces and tabs collapse to one space,
// runs of three or more newlines collapse to a paragraph break, and each
// line is trimmed.
func cleanText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// normalizeRecipe keeps each measurement or step on its own line and
// guarantees terminal punctuation per step. The punctuation makes the
// synthesizer pause naturally between steps; combined with the slow
// pacing hint this is the "pause markers" treatment recipes get.
func normalizeRecipe(raw string) string {
	cleaned := cleanText(raw)
	if cleaned == "" {
		return ""
	}

	lines := strings.Split(cleaned, "\n")
	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if !strings.ContainsAny(line[len(line)-1:], ".!?:;") {
			line += "."
		}
		steps = append(steps, line)
	}
	return strings.Join(steps, "\n")
}
