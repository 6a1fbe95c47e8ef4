package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/jobs"
	"github.com/familytales/memorybook-api/internal/services/threads"
	pkgerrors "github.com/familytales/memorybook-api/pkg/errors"
	"github.com/familytales/memorybook-api/pkg/retry"
)

// mockJobService records job lifecycle calls; unimplemented methods of
// the interface panic if reached.
type mockJobService struct {
	jobs.Service

	completed  bool
	result     models.JobResult
	progresses []int
}

func (m *mockJobService) UpdateProgress(ctx context.Context, jobID uint, progress int) error {
	m.progresses = append(m.progresses, progress)
	return nil
}

func (m *mockJobService) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	m.completed = true
	m.result = result
	return nil
}

// mockThreadService tracks the status transitions the pipeline drives
type mockThreadService struct {
	threads.Service

	status      models.ThreadStatus
	transitions []models.ThreadStatus
	cancelled   bool
	failedStage string
	failureKind models.FailureKind
}

func (m *mockThreadService) Transition(ctx context.Context, threadID uint, next models.ThreadStatus) error {
	if !m.status.CanTransitionTo(next) {
		return fmt.Errorf("invalid transition %s -> %s", m.status, next)
	}
	m.status = next
	m.transitions = append(m.transitions, next)
	return nil
}

func (m *mockThreadService) MarkFailed(ctx context.Context, threadID uint, stage string, reason string, kind models.FailureKind) error {
	m.status = models.ThreadStatusFailed
	m.failedStage = stage
	m.failureKind = kind
	return nil
}

func (m *mockThreadService) IsCancelled(ctx context.Context, threadID uint) (bool, error) {
	return m.cancelled, nil
}

func (m *mockThreadService) GetThread(ctx context.Context, threadID uint) (*models.Thread, error) {
	return &models.Thread{Status: m.status, Cancelled: m.cancelled}, nil
}

type mockExtraction struct{ err error }

func (m *mockExtraction) ExtractThread(ctx context.Context, threadID uint) error { return m.err }

type mockNarration struct {
	script *models.NarrationScript
	err    error
}

func (m *mockNarration) BuildScript(ctx context.Context, threadID uint) (*models.NarrationScript, error) {
	return m.script, m.err
}

type mockSynthesis struct {
	asset *models.AudioAsset
	audio []byte
	err   error
}

func (m *mockSynthesis) Synthesize(ctx context.Context, script *models.NarrationScript) (*models.AudioAsset, []byte, error) {
	return m.asset, m.audio, m.err
}

type mockPublisher struct {
	published bool
	entries   []models.SegmentEntry
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, threadID uint, script *models.NarrationScript, asset *models.AudioAsset, audio []byte, entries []models.SegmentEntry) error {
	if m.err != nil {
		return m.err
	}
	m.published = true
	m.entries = entries
	return nil
}

func assemblyJob() *models.Job {
	return &models.Job{
		Type:    models.JobTypeMemoryBookAssembly,
		Payload: models.JobPayload{"thread_id": float64(1)},
	}
}

func pipelineScript() *models.NarrationScript {
	return &models.NarrationScript{
		ThreadID:     1,
		Text:         "Hello there\n\nGoodbye now",
		SeparatorLen: 2,
		Blocks: models.BlockList{
			{ContentItemID: 10, Text: "Hello there", StartOffset: 0, EndOffset: 11},
			{ContentItemID: 11, Pacing: models.PacingSkipSilent, StartOffset: 11, EndOffset: 11, Skip: true},
			{ContentItemID: 12, Text: "Goodbye now", StartOffset: 13, EndOffset: 24},
		},
	}
}

func pipelineAsset() *models.AudioAsset {
	return &models.AudioAsset{
		ThreadID: 1,
		AssetRef: "narrations/test.wav",
		Duration: 4.0,
		TimingIndex: models.TimingIndex{
			{StartOffset: 0, EndOffset: 13, StartTime: 0.0, EndTime: 1.8},
			{StartOffset: 13, EndOffset: 24, StartTime: 1.8, EndTime: 4.0},
		},
	}
}

func newTestProcessor(js *mockJobService, ts *mockThreadService, ext *mockExtraction, narr *mockNarration, synth *mockSynthesis, pub *mockPublisher) *AssemblyProcessor {
	if narr.script == nil && narr.err == nil {
		narr.script = pipelineScript()
	}
	if synth.asset == nil && synth.err == nil {
		synth.asset = pipelineAsset()
		synth.audio = []byte("wav bytes")
	}
	return NewAssemblyProcessor(js, ts, ext, narr, synth, pub)
}

func TestProcessJob_HappyPath(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	pub := &mockPublisher{}
	proc := newTestProcessor(js, ts, &mockExtraction{}, &mockNarration{}, &mockSynthesis{}, pub)

	if err := proc.ProcessJob(context.Background(), assemblyJob()); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	wantTransitions := []models.ThreadStatus{
		models.ThreadStatusExtracting,
		models.ThreadStatusNormalizing,
		models.ThreadStatusSynthesizing,
		models.ThreadStatusBuildingTimeline,
		models.ThreadStatusPublishing,
	}
	if len(ts.transitions) != len(wantTransitions) {
		t.Fatalf("transitions = %v, want %v", ts.transitions, wantTransitions)
	}
	for i, want := range wantTransitions {
		if ts.transitions[i] != want {
			t.Errorf("transition %d = %s, want %s", i, ts.transitions[i], want)
		}
	}

	if !pub.published {
		t.Error("pipeline completed without publishing")
	}
	if len(pub.entries) != 3 {
		t.Errorf("published %d segment entries, want 3", len(pub.entries))
	}
	if !js.completed {
		t.Error("job not completed")
	}
	if js.result["segment_count"] != 3 {
		t.Errorf("job result = %v", js.result)
	}
}

func TestProcessJob_ExtractionRetriesExhausted(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	ext := &mockExtraction{err: fmt.Errorf("ocr extract: %w: backend down", retry.ErrAttemptsExhausted)}
	proc := newTestProcessor(js, ts, ext, &mockNarration{}, &mockSynthesis{}, &mockPublisher{})

	err := proc.ProcessJob(context.Background(), assemblyJob())
	if err == nil {
		t.Fatal("ProcessJob() should fail")
	}

	var structured *models.StructuredJobError
	if !errors.As(err, &structured) {
		t.Fatalf("error %T is not structured", err)
	}
	if structured.Type != models.ErrorTypeCollaborator {
		t.Errorf("job error type = %s, want collaborator", structured.Type)
	}
	if ts.status != models.ThreadStatusFailed {
		t.Errorf("thread status = %s, want failed", ts.status)
	}
	if ts.failedStage != StageExtraction {
		t.Errorf("failed stage = %q, want extraction", ts.failedStage)
	}
	if ts.failureKind != models.FailureKindTransientExhausted {
		t.Errorf("failure kind = %s, want transient_exhausted", ts.failureKind)
	}
}

func TestProcessJob_RetryAfterFailureRunsAgain(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	ext := &mockExtraction{err: fmt.Errorf("ocr extract: %w: backend down", retry.ErrAttemptsExhausted)}
	pub := &mockPublisher{}
	proc := newTestProcessor(js, ts, ext, &mockNarration{}, &mockSynthesis{}, pub)

	if err := proc.ProcessJob(context.Background(), assemblyJob()); err == nil {
		t.Fatal("first ProcessJob() should fail")
	}
	if ts.status != models.ThreadStatusFailed {
		t.Fatalf("thread status after failure = %s, want failed", ts.status)
	}

	// The collaborator recovers; a queue retry must run the pipeline
	// through, not die re-entering the state machine.
	ext.err = nil
	if err := proc.ProcessJob(context.Background(), assemblyJob()); err != nil {
		t.Fatalf("retried ProcessJob() error = %v", err)
	}

	if len(ts.transitions) < 2 || ts.transitions[1] != models.ThreadStatusDraft {
		t.Errorf("transitions = %v, want draft re-entry before the second run", ts.transitions)
	}
	if !pub.published {
		t.Error("retried run did not publish")
	}
	if !js.completed {
		t.Error("retried run did not complete the job")
	}
}

func TestProcessJob_ContractViolationClassified(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	narr := &mockNarration{err: pkgerrors.ContractViolation("normalizer", "item 3 has no current extracted text")}
	proc := newTestProcessor(js, ts, &mockExtraction{}, narr, &mockSynthesis{}, &mockPublisher{})

	err := proc.ProcessJob(context.Background(), assemblyJob())
	if err == nil {
		t.Fatal("ProcessJob() should fail")
	}

	var structured *models.StructuredJobError
	if !errors.As(err, &structured) {
		t.Fatalf("error %T is not structured", err)
	}
	if structured.Type != models.ErrorTypeContract {
		t.Errorf("job error type = %s, want contract", structured.Type)
	}
	if ts.failedStage != StageNormalization {
		t.Errorf("failed stage = %q, want normalization", ts.failedStage)
	}
	if ts.failureKind != models.FailureKindContract {
		t.Errorf("failure kind = %s, want contract", ts.failureKind)
	}
}

func TestProcessJob_SynthesisPermanentFailure(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	synth := &mockSynthesis{err: errors.New("voice not found")}
	pub := &mockPublisher{}
	proc := newTestProcessor(js, ts, &mockExtraction{}, &mockNarration{}, synth, pub)

	if err := proc.ProcessJob(context.Background(), assemblyJob()); err == nil {
		t.Fatal("ProcessJob() should fail")
	}
	if ts.failedStage != StageSynthesis {
		t.Errorf("failed stage = %q, want synthesis", ts.failedStage)
	}
	if ts.failureKind != models.FailureKindPermanent {
		t.Errorf("failure kind = %s, want permanent", ts.failureKind)
	}
	if pub.published {
		t.Error("publication happened despite synthesis failure")
	}
}

func TestProcessJob_CancellationStopsPipeline(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft, cancelled: true}
	pub := &mockPublisher{}
	proc := newTestProcessor(js, ts, &mockExtraction{}, &mockNarration{}, &mockSynthesis{}, pub)

	if err := proc.ProcessJob(context.Background(), assemblyJob()); err != nil {
		t.Fatalf("cancelled run should not error, got %v", err)
	}

	if pub.published {
		t.Error("cancelled run still published")
	}
	// Only the extraction transition happened before the cancel check.
	if len(ts.transitions) != 1 || ts.transitions[0] != models.ThreadStatusExtracting {
		t.Errorf("transitions = %v, want [extracting]", ts.transitions)
	}
	if !js.completed {
		t.Error("cancelled job not completed")
	}
	if js.result["cancelled"] != true {
		t.Errorf("job result = %v, want cancelled", js.result)
	}
}

func TestProcessJob_PublishFailureLeavesThreadFailed(t *testing.T) {
	js := &mockJobService{}
	ts := &mockThreadService{status: models.ThreadStatusDraft}
	pub := &mockPublisher{err: errors.New("bucket gone")}
	proc := newTestProcessor(js, ts, &mockExtraction{}, &mockNarration{}, &mockSynthesis{}, pub)

	if err := proc.ProcessJob(context.Background(), assemblyJob()); err == nil {
		t.Fatal("ProcessJob() should fail")
	}
	if ts.failedStage != StagePublish {
		t.Errorf("failed stage = %q, want publish", ts.failedStage)
	}
	if js.completed {
		t.Error("job completed despite publish failure")
	}
}

func TestProcessJob_MissingThreadID(t *testing.T) {
	proc := newTestProcessor(&mockJobService{}, &mockThreadService{status: models.ThreadStatusDraft},
		&mockExtraction{}, &mockNarration{}, &mockSynthesis{}, &mockPublisher{})

	job := &models.Job{Type: models.JobTypeMemoryBookAssembly, Payload: models.JobPayload{}}
	if err := proc.ProcessJob(context.Background(), job); err == nil {
		t.Error("ProcessJob() without thread_id should fail")
	}
}

func TestProcessJob_WrongJobType(t *testing.T) {
	proc := newTestProcessor(&mockJobService{}, &mockThreadService{status: models.ThreadStatusDraft},
		&mockExtraction{}, &mockNarration{}, &mockSynthesis{}, &mockPublisher{})

	job := &models.Job{Type: models.JobType("something_else")}
	if proc.CanProcess(job.Type) {
		t.Error("CanProcess() accepted wrong type")
	}
	if err := proc.ProcessJob(context.Background(), job); err == nil {
		t.Error("ProcessJob() with wrong type should fail")
	}
}
