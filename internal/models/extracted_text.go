package models

import (
	"gorm.io/gorm"
)

// Extraction method tags
const (
	ExtractionMethodOCR     = "ocr"
	ExtractionMethodCaption = "caption"
	ExtractionMethodEmpty   = "empty"
	ExtractionMethodUser    = "user_correction"
)

// ExtractedText is the output of text extraction for one content item.
// Exactly one current revision exists per item at any time; older
// revisions are retained for audit but never reused.
type ExtractedText struct {
	gorm.Model
	ContentItemID uint    `json:"content_item_id" gorm:"not null;index:idx_extractions_item_current"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"` // in [0,1]
	Method        string  `json:"method" gorm:"not null"`
	Revision      int     `json:"revision" gorm:"not null;default:1"`
	Current       bool    `json:"current" gorm:"not null;default:true;index:idx_extractions_item_current"`

	// NeedsReview flags a low-confidence extraction for optional user
	// correction. It is a data-quality flag, not an error; the pipeline
	// proceeds regardless.
	NeedsReview bool `json:"needs_review" gorm:"default:false"`
}

// TableName specifies the table name for GORM
func (ExtractedText) TableName() string {
	return "extracted_texts"
}
