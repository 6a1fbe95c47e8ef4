package models

import (
	"gorm.io/gorm"
)

// SegmentEntry binds one content item to its [start, end) time range in
// the thread's audio. Entries are contiguous and ordered to match the
// narration script's block order; narrated entries never overlap, and
// the last end never exceeds the audio asset's duration.
type SegmentEntry struct {
	gorm.Model
	ThreadID      uint `json:"thread_id" gorm:"not null;index;uniqueIndex:idx_segments_thread_position,priority:1"`
	ContentItemID uint `json:"content_item_id" gorm:"not null"`
	Position      int  `json:"position" gorm:"not null;uniqueIndex:idx_segments_thread_position,priority:2"`

	StartSeconds float64 `json:"start_seconds" gorm:"not null"`
	EndSeconds   float64 `json:"end_seconds" gorm:"not null"`

	// ZeroDuration marks captionless photos with no narration: the entry
	// anchors a jump target but the player should not attempt playback.
	ZeroDuration bool `json:"zero_duration" gorm:"default:false"`
}

// TableName specifies the table name for GORM
func (SegmentEntry) TableName() string {
	return "segment_entries"
}
