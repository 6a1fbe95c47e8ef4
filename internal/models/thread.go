package models

import (
	"gorm.io/gorm"
)

// ThreadStatus represents the processing state of a thread's pipeline run
type ThreadStatus string

const (
	ThreadStatusDraft            ThreadStatus = "draft"
	ThreadStatusExtracting       ThreadStatus = "extracting"
	ThreadStatusNormalizing      ThreadStatus = "normalizing"
	ThreadStatusSynthesizing     ThreadStatus = "synthesizing"
	ThreadStatusBuildingTimeline ThreadStatus = "building_timeline"
	ThreadStatusPublishing       ThreadStatus = "publishing"
	ThreadStatusReady            ThreadStatus = "ready"
	ThreadStatusFailed           ThreadStatus = "failed"
)

// FailureKind classifies why a pipeline run failed, so the client knows
// whether a plain retry will help or user action is needed
type FailureKind string

const (
	FailureKindTransientExhausted FailureKind = "transient_exhausted"
	FailureKindPermanent          FailureKind = "permanent"
	FailureKindContract           FailureKind = "contract"
)

// Thread is an ordered collection of content items sharing one continuous
// synthesized audio track. It exclusively owns its items, narration script,
// audio asset and segment map; those are always replaced together.
type Thread struct {
	gorm.Model
	Title  string       `json:"title" gorm:"not null"`
	Status ThreadStatus `json:"status" gorm:"default:'draft';index"`

	// Voice configuration for synthesis
	Voice        string  `json:"voice"`
	LanguageCode string  `json:"language_code"`
	SpeakingRate float64 `json:"speaking_rate" gorm:"default:1.0"`

	// Failure detail, set only when Status is failed
	FailedStage   string      `json:"failed_stage,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	FailureKind   FailureKind `json:"failure_kind,omitempty"`

	// Cancellation is cooperative: the pipeline checks this flag between
	// stages and aborts without publishing
	Cancelled bool `json:"cancelled" gorm:"default:false"`

	Items []ContentItem `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// pipelineOrder lists the non-terminal stages in execution order.
var pipelineOrder = []ThreadStatus{
	ThreadStatusDraft,
	ThreadStatusExtracting,
	ThreadStatusNormalizing,
	ThreadStatusSynthesizing,
	ThreadStatusBuildingTimeline,
	ThreadStatusPublishing,
	ThreadStatusReady,
}

// IsTerminal returns true if the thread is in a terminal processing state
func (s ThreadStatus) IsTerminal() bool {
	return s == ThreadStatusReady || s == ThreadStatusFailed
}

// IsProcessing returns true while a pipeline run owns the thread
func (s ThreadStatus) IsProcessing() bool {
	switch s {
	case ThreadStatusExtracting, ThreadStatusNormalizing, ThreadStatusSynthesizing,
		ThreadStatusBuildingTimeline, ThreadStatusPublishing:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// state machine transition: stages advance strictly in pipeline order,
// failed is reachable from any non-terminal state, and draft is
// re-enterable from failed or ready (user-triggered retry / correction).
func (s ThreadStatus) CanTransitionTo(next ThreadStatus) bool {
	if next == ThreadStatusFailed {
		return !s.IsTerminal()
	}
	if next == ThreadStatusDraft {
		return s == ThreadStatusFailed || s == ThreadStatusReady || s == ThreadStatusDraft
	}
	for i, stage := range pipelineOrder {
		if stage == s {
			return i+1 < len(pipelineOrder) && pipelineOrder[i+1] == next
		}
	}
	return false
}

// Editable returns true if items may still be added to the thread
func (t *Thread) Editable() bool {
	return t.Status == ThreadStatusDraft || t.Status == ThreadStatusFailed
}

// TableName specifies the table name for GORM
func (Thread) TableName() string {
	return "threads"
}
