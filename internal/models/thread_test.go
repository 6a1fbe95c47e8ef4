package models

import "testing"

func TestThreadStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from ThreadStatus
		to   ThreadStatus
		want bool
	}{
		{"draft to extracting", ThreadStatusDraft, ThreadStatusExtracting, true},
		{"extracting to normalizing", ThreadStatusExtracting, ThreadStatusNormalizing, true},
		{"normalizing to synthesizing", ThreadStatusNormalizing, ThreadStatusSynthesizing, true},
		{"synthesizing to building_timeline", ThreadStatusSynthesizing, ThreadStatusBuildingTimeline, true},
		{"building_timeline to publishing", ThreadStatusBuildingTimeline, ThreadStatusPublishing, true},
		{"publishing to ready", ThreadStatusPublishing, ThreadStatusReady, true},
		{"skipping a stage", ThreadStatusDraft, ThreadStatusSynthesizing, false},
		{"backwards", ThreadStatusSynthesizing, ThreadStatusExtracting, false},
		{"any non-terminal to failed", ThreadStatusSynthesizing, ThreadStatusFailed, true},
		{"draft to failed", ThreadStatusDraft, ThreadStatusFailed, true},
		{"ready to failed", ThreadStatusReady, ThreadStatusFailed, false},
		{"failed to failed", ThreadStatusFailed, ThreadStatusFailed, false},
		{"failed back to draft", ThreadStatusFailed, ThreadStatusDraft, true},
		{"ready back to draft for correction", ThreadStatusReady, ThreadStatusDraft, true},
		{"extracting back to draft", ThreadStatusExtracting, ThreadStatusDraft, false},
		{"ready advances nowhere", ThreadStatusReady, ThreadStatusExtracting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestThreadStatusPredicates(t *testing.T) {
	if !ThreadStatusReady.IsTerminal() || !ThreadStatusFailed.IsTerminal() {
		t.Error("ready and failed must be terminal")
	}
	if ThreadStatusDraft.IsTerminal() {
		t.Error("draft must not be terminal")
	}
	if !ThreadStatusSynthesizing.IsProcessing() {
		t.Error("synthesizing must count as processing")
	}
	if ThreadStatusDraft.IsProcessing() || ThreadStatusReady.IsProcessing() {
		t.Error("draft and ready must not count as processing")
	}
}

func TestTimingIndexValidate(t *testing.T) {
	valid := TimingIndex{
		{StartOffset: 0, EndOffset: 10, StartTime: 0, EndTime: 1.5},
		{StartOffset: 10, EndOffset: 25, StartTime: 1.5, EndTime: 4.0},
	}
	if err := valid.Validate(25); err != nil {
		t.Errorf("Validate() returned error for valid index: %v", err)
	}

	tests := []struct {
		name      string
		index     TimingIndex
		scriptLen int
	}{
		{"empty index", TimingIndex{}, 10},
		{"does not start at zero", TimingIndex{{StartOffset: 2, EndOffset: 10, EndTime: 1}}, 10},
		{"does not cover script", TimingIndex{{StartOffset: 0, EndOffset: 8, EndTime: 1}}, 10},
		{
			"offset overlap",
			TimingIndex{
				{StartOffset: 0, EndOffset: 6, StartTime: 0, EndTime: 1},
				{StartOffset: 4, EndOffset: 10, StartTime: 1, EndTime: 2},
			},
			10,
		},
		{
			"time goes backwards",
			TimingIndex{
				{StartOffset: 0, EndOffset: 6, StartTime: 0, EndTime: 2},
				{StartOffset: 6, EndOffset: 10, StartTime: 1, EndTime: 3},
			},
			10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.index.Validate(tt.scriptLen); err == nil {
				t.Error("Validate() should have returned an error")
			}
		})
	}
}

func TestPacingMultiplier(t *testing.T) {
	if PacingSlow.Multiplier() <= PacingNormal.Multiplier() {
		t.Error("slow pacing must get a larger multiplier than normal")
	}
	if PacingSkipSilent.Multiplier() != 0 {
		t.Error("skip blocks must get zero time in the proportional estimate")
	}
}
