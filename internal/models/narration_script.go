package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

// PacingHint tells the synthesizer how a block should be narrated
type PacingHint string

const (
	PacingNormal      PacingHint = "normal"
	PacingSlow        PacingHint = "slow"
	PacingCaptionOnly PacingHint = "caption_only"
	PacingSkipSilent  PacingHint = "skip_silent"
)

// Multiplier returns the per-kind pacing multiplier used by the
// proportional timing estimate. Slow narration gets more time per
// character than normal speech.
func (p PacingHint) Multiplier() float64 {
	switch p {
	case PacingSlow:
		return 1.35
	case PacingCaptionOnly:
		return 1.1
	case PacingSkipSilent:
		return 0
	default:
		return 1.0
	}
}

// ScriptBlock is one item's contribution to the narration script.
// StartOffset and EndOffset are byte offsets into the script's exact
// joined text; the timeline builder depends on them being exact.
type ScriptBlock struct {
	ContentItemID uint       `json:"content_item_id"`
	Text          string     `json:"text"`
	Pacing        PacingHint `json:"pacing"`
	StartOffset   int        `json:"start_offset"`
	EndOffset     int        `json:"end_offset"`
	Skip          bool       `json:"skip"`
}

// BlockList is the ordered list of script blocks, stored as a JSON column
type BlockList []ScriptBlock

// Value implements driver.Valuer interface for BlockList
func (b BlockList) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner interface for BlockList
func (b *BlockList) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, b)
}

// NarrationScript is the normalized, concatenated narration text for an
// entire thread. Text is the exact string sent to the synthesizer and is
// retained byte-for-byte: the segment timeline depends on exact offset
// correspondence. Scripts are rebuilt whole, never patched.
type NarrationScript struct {
	gorm.Model
	ThreadID     uint      `json:"thread_id" gorm:"not null;uniqueIndex"`
	Text         string    `json:"text"`
	SeparatorLen int       `json:"separator_len" gorm:"not null"`
	Blocks       BlockList `json:"blocks" gorm:"type:json"`
}

// NarratedLen returns the total number of narrated (non-skip) blocks
func (s *NarrationScript) NarratedLen() int {
	n := 0
	for _, b := range s.Blocks {
		if !b.Skip {
			n++
		}
	}
	return n
}

// TableName specifies the table name for GORM
func (NarrationScript) TableName() string {
	return "narration_scripts"
}
