package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// TimingSpan maps a character offset range of the narration script to a
// time range of the synthesized audio. Spans are ordered and
// monotonically non-decreasing in both offset and time.
type TimingSpan struct {
	StartOffset int     `json:"start_offset"`
	EndOffset   int     `json:"end_offset"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
}

// TimingIndex is the ordered list of timing spans, stored as a JSON column
type TimingIndex []TimingSpan

// Value implements driver.Valuer interface for TimingIndex
func (t TimingIndex) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner interface for TimingIndex
func (t *TimingIndex) Scan(value interface{}) error {
	if value == nil {
		*t = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, t)
}

// Validate checks the index invariants: monotonic in offset and time,
// and covering the script from offset 0 to scriptLen.
func (t TimingIndex) Validate(scriptLen int) error {
	if len(t) == 0 {
		return fmt.Errorf("timing index is empty")
	}
	if t[0].StartOffset != 0 {
		return fmt.Errorf("timing index starts at offset %d, want 0", t[0].StartOffset)
	}
	if t[len(t)-1].EndOffset != scriptLen {
		return fmt.Errorf("timing index ends at offset %d, script length is %d", t[len(t)-1].EndOffset, scriptLen)
	}
	for i, span := range t {
		if span.EndOffset < span.StartOffset || span.EndTime < span.StartTime {
			return fmt.Errorf("timing span %d is inverted", i)
		}
		if i > 0 {
			prev := t[i-1]
			if span.StartOffset < prev.EndOffset || span.StartTime < prev.EndTime {
				return fmt.Errorf("timing span %d overlaps its predecessor", i)
			}
		}
	}
	return nil
}

// AudioAsset is the synthesized narration for a thread. A resynthesis
// replaces it atomically; consumers never observe a partial update.
type AudioAsset struct {
	gorm.Model
	ThreadID uint `json:"thread_id" gorm:"not null;uniqueIndex"`

	// AssetRef is the stable object name of the audio bytes in the
	// storage collaborator. It doubles as the idempotency key for
	// publish retries: a re-run with the same ref never re-uploads.
	AssetRef    string `json:"asset_ref" gorm:"not null"`
	PlayableURL string `json:"playable_url"`

	Duration    float64     `json:"duration"` // seconds
	TimingIndex TimingIndex `json:"timing_index" gorm:"type:json"`

	// Estimated is true when the timing index came from the proportional
	// fallback rather than provider timepoints; timing precision is lower.
	Estimated bool `json:"estimated" gorm:"default:false"`

	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
}

// TableName specifies the table name for GORM
func (AudioAsset) TableName() string {
	return "audio_assets"
}
