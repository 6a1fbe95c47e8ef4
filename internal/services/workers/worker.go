package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/jobs"
)

// JobProcessor handles one or more job types claimed off the queue.
type JobProcessor interface {
	ProcessJob(ctx context.Context, job *models.Job) error
	CanProcess(jobType models.JobType) bool
}

// claimableTypes is the set of job types workers poll for.
var claimableTypes = []models.JobType{
	models.JobTypeMemoryBookAssembly,
}

// Worker polls the job queue and dispatches claimed jobs to its
// registered processors. One worker processes one job at a time; a
// thread's pipeline run never interleaves with another on the same
// worker.
type Worker struct {
	id           string
	jobService   jobs.Service
	processors   []JobProcessor
	stopChan     chan struct{}
	wg           sync.WaitGroup
	pollInterval time.Duration
}

func NewWorker(id string, jobService jobs.Service, pollInterval time.Duration) *Worker {
	return &Worker{
		id:           id,
		jobService:   jobService,
		stopChan:     make(chan struct{}),
		pollInterval: pollInterval,
	}
}

// RegisterProcessor adds a processor. Not safe to call after Start.
func (w *Worker) RegisterProcessor(processor JobProcessor) {
	w.processors = append(w.processors, processor)
}

// Start launches the polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the loop and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log.Printf("[DEBUG] Worker %s starting", w.id)
	defer log.Printf("[DEBUG] Worker %s stopped", w.id)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			if err := w.processNextJob(ctx); err != nil {
				log.Printf("[ERROR] Worker %s: %v", w.id, err)
			}
		}
	}
}

// supportedTypes returns the claimable types some registered processor
// can handle, preserving claimableTypes order.
func (w *Worker) supportedTypes() []models.JobType {
	var supported []models.JobType
	for _, jobType := range claimableTypes {
		for _, p := range w.processors {
			if p.CanProcess(jobType) {
				supported = append(supported, jobType)
				break
			}
		}
	}
	return supported
}

func (w *Worker) processNextJob(ctx context.Context) error {
	supported := w.supportedTypes()
	if len(supported) == 0 {
		return fmt.Errorf("no job processors registered")
	}

	job, err := w.jobService.ClaimNextJob(ctx, w.id, supported)
	if err != nil || job == nil {
		// An empty queue is the normal idle case, not an error
		return nil
	}

	log.Printf("[DEBUG] Worker %s claimed job %d (type: %s)", w.id, job.ID, job.Type)

	var processor JobProcessor
	for _, p := range w.processors {
		if p.CanProcess(job.Type) {
			processor = p
			break
		}
	}
	if processor == nil {
		return fmt.Errorf("no processor for claimed job type %s", job.Type)
	}

	if err := processor.ProcessJob(ctx, job); err != nil {
		w.recordFailure(ctx, job, err)
		return fmt.Errorf("job %d failed: %w", job.ID, err)
	}

	log.Printf("[DEBUG] Worker %s completed job %d", w.id, job.ID)
	return nil
}

// recordFailure marks the job failed, preserving structured error
// classification when the processor supplied it.
func (w *Worker) recordFailure(ctx context.Context, job *models.Job, procErr error) {
	var failErr error
	if structured, ok := procErr.(*models.StructuredJobError); ok {
		failErr = w.jobService.FailJobWithDetails(ctx, job.ID, structured.Type, structured.Code, structured.Message, structured.Details)
	} else {
		failErr = w.jobService.FailJob(ctx, job.ID, procErr)
	}
	if failErr != nil {
		log.Printf("[ERROR] Worker %s: could not mark job %d failed: %v", w.id, job.ID, failErr)
	}
}

// WorkerPool runs a fixed set of workers over one job service.
type WorkerPool struct {
	workers []*Worker
	mu      sync.Mutex
	started bool
}

func NewWorkerPool(jobService jobs.Service, workerCount int, pollInterval time.Duration) *WorkerPool {
	pool := &WorkerPool{workers: make([]*Worker, workerCount)}
	for i := range pool.workers {
		pool.workers[i] = NewWorker(fmt.Sprintf("worker-%d", i+1), jobService, pollInterval)
	}
	return pool
}

// RegisterProcessor registers a processor with every worker in the pool.
func (p *WorkerPool) RegisterProcessor(processor JobProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, worker := range p.workers {
		worker.RegisterProcessor(processor)
	}
}

// Start launches all workers. Starting an already-started pool is an error.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}

	log.Printf("[DEBUG] Starting worker pool with %d workers", len(p.workers))

	for _, worker := range p.workers {
		worker.Start(ctx)
	}

	p.started = true
	return nil
}

// Stop drains all workers. Safe to call more than once.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	log.Printf("[DEBUG] Stopping worker pool")

	for _, worker := range p.workers {
		worker.Stop()
	}

	p.started = false
}
