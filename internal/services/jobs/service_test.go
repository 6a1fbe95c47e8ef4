package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/familytales/memorybook-api/internal/models"
)

// mockRepository is an in-memory Repository for service tests.
type mockRepository struct {
	mu     sync.Mutex
	nextID uint
	jobs   map[uint]*models.Job
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, jobs: make(map[uint]*models.Job)}
}

func (m *mockRepository) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = m.nextID
	m.nextID++
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockRepository) GetJob(ctx context.Context, id uint) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *mockRepository) GetJobByTypeAndPayload(ctx context.Context, jobType models.JobType, key, value string) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.Type != jobType {
			continue
		}
		if fmt.Sprintf("%v", job.Payload[key]) == value {
			copied := *job
			return &copied, nil
		}
	}
	return nil, ErrJobNotFound
}

func (m *mockRepository) ClaimNextJob(ctx context.Context, workerID string, jobTypes []models.JobType) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.Status != models.JobStatusPending {
			continue
		}
		for _, jt := range jobTypes {
			if job.Type == jt {
				job.Status = models.JobStatusProcessing
				job.WorkerID = workerID
				now := time.Now()
				job.StartedAt = &now
				copied := *job
				return &copied, nil
			}
		}
	}
	return nil, ErrNoJobsAvailable
}

func (m *mockRepository) UpdateJobProgress(ctx context.Context, jobID uint, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Progress = progress
	return nil
}

func (m *mockRepository) CompleteJob(ctx context.Context, jobID uint, result models.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = models.JobStatusCompleted
	job.Result = result
	now := time.Now()
	job.CompletedAt = &now
	return nil
}

func (m *mockRepository) FailJobWithDetails(ctx context.Context, jobID uint, errorType models.JobErrorType, errorCode, errorMsg, errorDetails string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.RetryCount++
	if job.RetryCount >= job.MaxRetries {
		job.Status = models.JobStatusPermanentlyFailed
	} else {
		job.Status = models.JobStatusFailed
	}
	job.ErrorType = string(errorType)
	job.ErrorCode = errorCode
	job.Error = errorMsg
	job.ErrorDetails = errorDetails
	return nil
}

func (m *mockRepository) ReleaseJob(ctx context.Context, jobID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = models.JobStatusPending
	job.WorkerID = ""
	return nil
}

func (m *mockRepository) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, job := range m.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(olderThan) {
			delete(m.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

func TestEnqueueJobDefaults(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	job, err := svc.EnqueueJob(context.Background(), models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(1)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	if job.Status != models.JobStatusPending {
		t.Errorf("Expected pending status, got %s", job.Status)
	}
	if job.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, job.MaxRetries)
	}
}

func TestEnqueueUniqueJobDeduplicates(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	payload := models.JobPayload{"thread_id": uint(7)}

	first, err := svc.EnqueueUniqueJob(ctx, models.JobTypeMemoryBookAssembly, payload, "thread_id")
	if err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}

	second, err := svc.EnqueueUniqueJob(ctx, models.JobTypeMemoryBookAssembly, payload, "thread_id")
	if err != nil {
		t.Fatalf("Second enqueue failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected the pending job to be reused, got IDs %d and %d", first.ID, second.ID)
	}
}

func TestEnqueueUniqueJobAfterTerminal(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()
	payload := models.JobPayload{"thread_id": uint(7)}

	first, err := svc.EnqueueUniqueJob(ctx, models.JobTypeMemoryBookAssembly, payload, "thread_id")
	if err != nil {
		t.Fatalf("First enqueue failed: %v", err)
	}
	if err := svc.CompleteJob(ctx, first.ID, models.JobResult{"ok": true}); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	second, err := svc.EnqueueUniqueJob(ctx, models.JobTypeMemoryBookAssembly, payload, "thread_id")
	if err != nil {
		t.Fatalf("Second enqueue failed: %v", err)
	}
	if first.ID == second.ID {
		t.Error("Expected a new job after the previous run completed")
	}
}

func TestEnqueueUniqueJobRequiresKeyInPayload(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.EnqueueUniqueJob(context.Background(), models.JobTypeMemoryBookAssembly, models.JobPayload{}, "thread_id")
	if err == nil {
		t.Error("Expected error when unique key missing from payload")
	}
}

func TestClaimNextJob(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	enqueued, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(3)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	claimed, err := svc.ClaimNextJob(ctx, "worker-1", []models.JobType{models.JobTypeMemoryBookAssembly})
	if err != nil {
		t.Fatalf("ClaimNextJob failed: %v", err)
	}
	if claimed.ID != enqueued.ID {
		t.Errorf("Expected to claim job %d, got %d", enqueued.ID, claimed.ID)
	}
	if claimed.Status != models.JobStatusProcessing {
		t.Errorf("Expected processing status, got %s", claimed.Status)
	}
	if claimed.WorkerID != "worker-1" {
		t.Errorf("Expected worker-1 to own the job, got %q", claimed.WorkerID)
	}

	if _, err := svc.ClaimNextJob(ctx, "worker-2", []models.JobType{models.JobTypeMemoryBookAssembly}); !errors.Is(err, ErrNoJobsAvailable) {
		t.Errorf("Expected ErrNoJobsAvailable for second claim, got %v", err)
	}
}

func TestFailJobWithDetailsTracksRetries(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(3)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	if err := svc.FailJobWithDetails(ctx, job.ID, models.ErrorTypeCollaborator, "RETRIES_EXHAUSTED", "ocr unavailable", ""); err != nil {
		t.Fatalf("FailJobWithDetails failed: %v", err)
	}

	failed, err := svc.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if failed.Status != models.JobStatusFailed {
		t.Errorf("Expected failed status after first failure, got %s", failed.Status)
	}
	if failed.ErrorCode != "RETRIES_EXHAUSTED" {
		t.Errorf("Expected error code to be recorded, got %q", failed.ErrorCode)
	}
	if failed.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", failed.RetryCount)
	}
}

func TestRetryFailedJob(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(3)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
	if err := svc.FailJobWithDetails(ctx, job.ID, models.ErrorTypeProcessing, "STAGE_FAILED", "boom", ""); err != nil {
		t.Fatalf("FailJobWithDetails failed: %v", err)
	}

	retried, err := svc.RetryFailedJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailedJob failed: %v", err)
	}
	if retried.Status != models.JobStatusPending {
		t.Errorf("Expected pending status after retry, got %s", retried.Status)
	}
}

func TestRetryFailedJobRejectsNonFailed(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(3)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	if _, err := svc.RetryFailedJob(ctx, job.ID); err == nil {
		t.Error("Expected error retrying a pending job")
	}
}

func TestGetJobForThread(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	enqueued, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(9)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}

	found, err := svc.GetJobForThread(ctx, 9)
	if err != nil {
		t.Fatalf("GetJobForThread failed: %v", err)
	}
	if found.ID != enqueued.ID {
		t.Errorf("Expected job %d, got %d", enqueued.ID, found.ID)
	}

	if _, err := svc.GetJobForThread(ctx, 99); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestCleanupOldJobs(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	job, err := svc.EnqueueJob(ctx, models.JobTypeMemoryBookAssembly, models.JobPayload{"thread_id": uint(1)})
	if err != nil {
		t.Fatalf("EnqueueJob failed: %v", err)
	}
	if err := svc.CompleteJob(ctx, job.ID, nil); err != nil {
		t.Fatalf("CompleteJob failed: %v", err)
	}

	// Backdate completion beyond the retention window
	repo.mu.Lock()
	old := time.Now().AddDate(0, 0, -40)
	repo.jobs[job.ID].CompletedAt = &old
	repo.mu.Unlock()

	deleted, err := svc.CleanupOldJobs(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOldJobs failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted job, got %d", deleted)
	}

	if _, err := svc.CleanupOldJobs(ctx, 0); err == nil {
		t.Error("Expected error for non-positive retention")
	}
}
