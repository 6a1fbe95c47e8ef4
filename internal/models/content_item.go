package models

import (
	"gorm.io/gorm"
)

// ContentItemKind is the closed set of content kinds the pipeline narrates.
// The normalizer's pacing rules switch exhaustively over this set.
type ContentItemKind string

const (
	KindHandwritten ContentItemKind = "handwritten"
	KindTyped       ContentItemKind = "typed"
	KindPhoto       ContentItemKind = "photo"
	KindRecipe      ContentItemKind = "recipe"
)

// ValidKind reports whether k is a known content kind
func ValidKind(k ContentItemKind) bool {
	switch k {
	case KindHandwritten, KindTyped, KindPhoto, KindRecipe:
		return true
	}
	return false
}

// RequiresOCR reports whether items of this kind are sent to the text
// extraction collaborator. Photos never are; their caption (if any) is
// used verbatim.
func (k ContentItemKind) RequiresOCR() bool {
	return k != KindPhoto
}

// ContentItem is one unit of input content within a thread. Ordinals are
// unique and total-ordered per thread; order is preserved end-to-end.
// Items are immutable once extraction begins; user corrections create a
// new ExtractedText revision, never a new item.
type ContentItem struct {
	gorm.Model
	ThreadID   uint            `json:"thread_id" gorm:"not null;index;uniqueIndex:idx_items_thread_ordinal,priority:1"`
	Ordinal    int             `json:"ordinal" gorm:"not null;uniqueIndex:idx_items_thread_ordinal,priority:2"`
	Kind       ContentItemKind `json:"kind" gorm:"not null"`
	SourceRef  string          `json:"source_ref"` // opaque handle to original bytes in the collaborator store
	Caption    string          `json:"caption,omitempty"`
	PageNumber int             `json:"page_number,omitempty"`

	Extractions []ExtractedText `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for GORM
func (ContentItem) TableName() string {
	return "content_items"
}
