package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/extraction"
	"github.com/familytales/memorybook-api/internal/services/jobs"
	"github.com/familytales/memorybook-api/internal/services/narration"
	"github.com/familytales/memorybook-api/internal/services/publisher"
	"github.com/familytales/memorybook-api/internal/services/synthesis"
	"github.com/familytales/memorybook-api/internal/services/threads"
	"github.com/familytales/memorybook-api/internal/services/timeline"
	pkgerrors "github.com/familytales/memorybook-api/pkg/errors"
	"github.com/familytales/memorybook-api/pkg/retry"
)

// Pipeline stage names recorded on failed threads
const (
	StageExtraction    = "extraction"
	StageNormalization = "normalization"
	StageSynthesis     = "synthesis"
	StageTimeline      = "timeline"
	StagePublish       = "publish"
)

// AssemblyProcessor runs the full memory book assembly pipeline for one
// thread: extract, normalize, synthesize, build the timeline, publish.
// Stages run strictly in order; a cooperative cancellation check sits
// between each pair of stages.
type AssemblyProcessor struct {
	jobService       jobs.Service
	threadService    threads.Service
	extractService   extraction.Service
	narrationService narration.Service
	synthesisService synthesis.Service
	publishService   publisher.Service
}

// NewAssemblyProcessor creates a new assembly processor
func NewAssemblyProcessor(
	jobService jobs.Service,
	threadService threads.Service,
	extractService extraction.Service,
	narrationService narration.Service,
	synthesisService synthesis.Service,
	publishService publisher.Service,
) *AssemblyProcessor {
	return &AssemblyProcessor{
		jobService:       jobService,
		threadService:    threadService,
		extractService:   extractService,
		narrationService: narrationService,
		synthesisService: synthesisService,
		publishService:   publishService,
	}
}

// CanProcess returns true if this processor can handle the job type
func (p *AssemblyProcessor) CanProcess(jobType models.JobType) bool {
	return jobType == models.JobTypeMemoryBookAssembly
}

// ProcessJob processes a memory book assembly job
func (p *AssemblyProcessor) ProcessJob(ctx context.Context, job *models.Job) error {
	if !p.CanProcess(job.Type) {
		return fmt.Errorf("unsupported job type: %s", job.Type)
	}

	threadID, ok := job.GetPayloadUint("thread_id")
	if !ok {
		return models.NewSystemError("INVALID_PAYLOAD", "job payload has no thread_id", "", nil)
	}

	log.Printf("Processing assembly job %d for thread %d", job.ID, threadID)

	// A failed thread claimed again by the queue re-enters draft first,
	// the same path a user resubmission takes. Without this reset the
	// retry would die on the failed->extracting transition.
	thread, err := p.threadService.GetThread(ctx, threadID)
	if err != nil {
		return models.NewSystemError("THREAD_LOOKUP_FAILED", "thread lookup failed", err.Error(), err)
	}
	if thread.Status == models.ThreadStatusFailed {
		if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusDraft); err != nil {
			return models.NewSystemError("BAD_TRANSITION", "cannot reset failed thread to draft", err.Error(), err)
		}
	}

	// Stage 1: extraction
	if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusExtracting); err != nil {
		return models.NewSystemError("BAD_TRANSITION", "thread not in a startable state", err.Error(), err)
	}
	p.progress(ctx, job.ID, 10)

	if err := p.extractService.ExtractThread(ctx, threadID); err != nil {
		return p.failStage(ctx, threadID, StageExtraction, err)
	}
	p.progress(ctx, job.ID, 30)

	if cancelled := p.checkCancelled(ctx, job, threadID, StageExtraction); cancelled {
		return nil
	}

	// Stage 2: normalization
	if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusNormalizing); err != nil {
		return models.NewSystemError("BAD_TRANSITION", "cannot enter normalizing", err.Error(), err)
	}

	script, err := p.narrationService.BuildScript(ctx, threadID)
	if err != nil {
		return p.failStage(ctx, threadID, StageNormalization, err)
	}
	p.progress(ctx, job.ID, 45)

	if cancelled := p.checkCancelled(ctx, job, threadID, StageNormalization); cancelled {
		return nil
	}

	// Stage 3: synthesis
	if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusSynthesizing); err != nil {
		return models.NewSystemError("BAD_TRANSITION", "cannot enter synthesizing", err.Error(), err)
	}

	asset, audio, err := p.synthesisService.Synthesize(ctx, script)
	if err != nil {
		return p.failStage(ctx, threadID, StageSynthesis, err)
	}
	p.progress(ctx, job.ID, 70)

	if cancelled := p.checkCancelled(ctx, job, threadID, StageSynthesis); cancelled {
		return nil
	}

	// Stage 4: segment timeline
	if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusBuildingTimeline); err != nil {
		return models.NewSystemError("BAD_TRANSITION", "cannot enter building_timeline", err.Error(), err)
	}

	entries, err := timeline.Build(script, asset.TimingIndex, asset.Duration)
	if err != nil {
		return p.failStage(ctx, threadID, StageTimeline, err)
	}
	p.progress(ctx, job.ID, 85)

	if cancelled := p.checkCancelled(ctx, job, threadID, StageTimeline); cancelled {
		return nil
	}

	// Stage 5: publish
	if err := p.threadService.Transition(ctx, threadID, models.ThreadStatusPublishing); err != nil {
		return models.NewSystemError("BAD_TRANSITION", "cannot enter publishing", err.Error(), err)
	}

	if err := p.publishService.Publish(ctx, threadID, script, asset, audio, entries); err != nil {
		return p.failStage(ctx, threadID, StagePublish, err)
	}

	result := models.JobResult{
		"thread_id":     threadID,
		"duration":      asset.Duration,
		"segment_count": len(entries),
		"playable_url":  asset.PlayableURL,
		"estimated":     asset.Estimated,
	}
	if err := p.jobService.CompleteJob(ctx, job.ID, result); err != nil {
		log.Printf("Failed to mark job %d complete: %v", job.ID, err)
	}

	log.Printf("Assembly job %d complete: thread %d ready (%.2fs audio)", job.ID, threadID, asset.Duration)
	return nil
}

// checkCancelled honors a cancellation request between stages. A
// cancelled run completes its job without publishing; if the thread
// still exists it is parked in failed so the user can re-enter draft.
func (p *AssemblyProcessor) checkCancelled(ctx context.Context, job *models.Job, threadID uint, stage string) bool {
	cancelled, err := p.threadService.IsCancelled(ctx, threadID)
	if err != nil {
		log.Printf("Cancellation check for thread %d failed: %v", threadID, err)
		return false
	}
	if !cancelled {
		return false
	}

	log.Printf("Thread %d cancelled after %s; abandoning run", threadID, stage)

	if _, err := p.threadService.GetThread(ctx, threadID); err == nil {
		if ferr := p.threadService.MarkFailed(ctx, threadID, stage, "run cancelled", models.FailureKindPermanent); ferr != nil {
			log.Printf("Failed to park cancelled thread %d: %v", threadID, ferr)
		}
	}

	if err := p.jobService.CompleteJob(ctx, job.ID, models.JobResult{"cancelled": true}); err != nil {
		log.Printf("Failed to complete cancelled job %d: %v", job.ID, err)
	}
	return true
}

// failStage records the failure on the thread and converts the error
// into a structured job error so the queue classifies it correctly.
func (p *AssemblyProcessor) failStage(ctx context.Context, threadID uint, stage string, err error) error {
	kind, errType, code := classifyFailure(err)

	if markErr := p.threadService.MarkFailed(ctx, threadID, stage, err.Error(), kind); markErr != nil {
		log.Printf("Failed to mark thread %d failed at %s: %v", threadID, stage, markErr)
	}

	msg := fmt.Sprintf("%s stage failed for thread %d", stage, threadID)
	switch errType {
	case models.ErrorTypeContract:
		return models.NewContractError(code, msg, err.Error(), err)
	case models.ErrorTypeCollaborator:
		return models.NewCollaboratorError(code, msg, err.Error(), err)
	default:
		return models.NewProcessingError(code, msg, err.Error(), err)
	}
}

// classifyFailure maps a stage error onto the thread failure kind and
// the job queue's error taxonomy.
func classifyFailure(err error) (models.FailureKind, models.JobErrorType, string) {
	switch {
	case pkgerrors.Is(err, pkgerrors.ErrCodeContractViolated):
		return models.FailureKindContract, models.ErrorTypeContract, "CONTRACT_VIOLATED"
	case retry.IsExhausted(err):
		return models.FailureKindTransientExhausted, models.ErrorTypeCollaborator, "RETRIES_EXHAUSTED"
	default:
		return models.FailureKindPermanent, models.ErrorTypeProcessing, "STAGE_FAILED"
	}
}

// progress best-effort updates the job's progress percentage
func (p *AssemblyProcessor) progress(ctx context.Context, jobID uint, pct int) {
	if err := p.jobService.UpdateProgress(ctx, jobID, pct); err != nil {
		log.Printf("Failed to update job %d progress: %v", jobID, err)
	}
}
