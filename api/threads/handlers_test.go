package threads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familytales/memorybook-api/api/types"
	"github.com/familytales/memorybook-api/internal/models"
	"github.com/familytales/memorybook-api/internal/services/jobs"
	threadsService "github.com/familytales/memorybook-api/internal/services/threads"
)

// stubThreadService overrides only the methods a given test exercises.
type stubThreadService struct {
	threadsService.Service

	createFn        func(ctx context.Context, thread *models.Thread) error
	getFn           func(ctx context.Context, threadID uint) (*models.Thread, error)
	getWithItemsFn  func(ctx context.Context, threadID uint) (*models.Thread, error)
	deleteFn        func(ctx context.Context, threadID uint) error
	addItemFn       func(ctx context.Context, threadID uint, item *models.ContentItem) error
	transitionFn    func(ctx context.Context, threadID uint, next models.ThreadStatus) error
	correctFn       func(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error)
	audioAssetFn    func(ctx context.Context, threadID uint) (*models.AudioAsset, error)
	segmentMapFn    func(ctx context.Context, threadID uint) ([]models.SegmentEntry, error)
}

func (s *stubThreadService) CreateThread(ctx context.Context, thread *models.Thread) error {
	return s.createFn(ctx, thread)
}

func (s *stubThreadService) GetThread(ctx context.Context, threadID uint) (*models.Thread, error) {
	return s.getFn(ctx, threadID)
}

func (s *stubThreadService) GetThreadWithItems(ctx context.Context, threadID uint) (*models.Thread, error) {
	return s.getWithItemsFn(ctx, threadID)
}

func (s *stubThreadService) DeleteThread(ctx context.Context, threadID uint) error {
	return s.deleteFn(ctx, threadID)
}

func (s *stubThreadService) AddItem(ctx context.Context, threadID uint, item *models.ContentItem) error {
	return s.addItemFn(ctx, threadID, item)
}

func (s *stubThreadService) Transition(ctx context.Context, threadID uint, next models.ThreadStatus) error {
	return s.transitionFn(ctx, threadID, next)
}

func (s *stubThreadService) CorrectItemText(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error) {
	return s.correctFn(ctx, itemID, text)
}

func (s *stubThreadService) GetAudioAsset(ctx context.Context, threadID uint) (*models.AudioAsset, error) {
	return s.audioAssetFn(ctx, threadID)
}

func (s *stubThreadService) GetSegmentMap(ctx context.Context, threadID uint) ([]models.SegmentEntry, error) {
	return s.segmentMapFn(ctx, threadID)
}

// stubJobService overrides the enqueue and lookup paths.
type stubJobService struct {
	jobs.Service

	enqueueUniqueFn func(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error)
	jobForThreadFn  func(ctx context.Context, threadID uint) (*models.Job, error)
}

func (s *stubJobService) EnqueueUniqueJob(ctx context.Context, jobType models.JobType, payload models.JobPayload, uniqueKey string, opts ...jobs.JobOption) (*models.Job, error) {
	return s.enqueueUniqueFn(ctx, jobType, payload, uniqueKey, opts...)
}

func (s *stubJobService) GetJobForThread(ctx context.Context, threadID uint) (*models.Job, error) {
	return s.jobForThreadFn(ctx, threadID)
}

func newRouter(deps *types.Dependencies) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/api/v1/threads")
	RegisterRoutes(group, deps)
	itemGroup := router.Group("/api/v1/items")
	RegisterItemRoutes(itemGroup, deps)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateThread(t *testing.T) {
	svc := &stubThreadService{
		createFn: func(ctx context.Context, thread *models.Thread) error {
			thread.ID = 7
			thread.Status = models.ThreadStatusDraft
			return nil
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "POST", "/api/v1/threads", CreateThreadRequest{Title: "Grandma's letters"})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Thread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, uint(7), created.ID)
	assert.Equal(t, "Grandma's letters", created.Title)
	assert.Equal(t, models.ThreadStatusDraft, created.Status)
}

func TestCreateThreadRequiresTitle(t *testing.T) {
	router := newRouter(&types.Dependencies{ThreadService: &stubThreadService{}})

	w := doJSON(t, router, "POST", "/api/v1/threads", map[string]string{"voice": "en-US-Neural2-F"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetThreadNotFound(t *testing.T) {
	svc := &stubThreadService{
		getWithItemsFn: func(ctx context.Context, threadID uint) (*models.Thread, error) {
			return nil, threadsService.ErrThreadNotFound
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "GET", "/api/v1/threads/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetThreadInvalidID(t *testing.T) {
	router := newRouter(&types.Dependencies{ThreadService: &stubThreadService{}})

	w := doJSON(t, router, "GET", "/api/v1/threads/not-a-number", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteThread(t *testing.T) {
	var deleted uint
	svc := &stubThreadService{
		deleteFn: func(ctx context.Context, threadID uint) error {
			deleted = threadID
			return nil
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "DELETE", "/api/v1/threads/3", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint(3), deleted)
}

func TestAddItem(t *testing.T) {
	svc := &stubThreadService{
		addItemFn: func(ctx context.Context, threadID uint, item *models.ContentItem) error {
			item.ID = 9
			item.ThreadID = threadID
			item.Ordinal = 1
			return nil
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "POST", "/api/v1/threads/5/items", AddItemRequest{
		Kind:      string(models.KindHandwritten),
		SourceRef: "uploads/letter-1.jpg",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var item models.ContentItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, uint(5), item.ThreadID)
	assert.Equal(t, 1, item.Ordinal)
}

func TestAddItemRejectsUnknownKind(t *testing.T) {
	svc := &stubThreadService{
		addItemFn: func(ctx context.Context, threadID uint, item *models.ContentItem) error {
			return fmt.Errorf("unknown content item kind %q", item.Kind)
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "POST", "/api/v1/threads/5/items", AddItemRequest{Kind: "hologram"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddItemConflictsWhileProcessing(t *testing.T) {
	svc := &stubThreadService{
		addItemFn: func(ctx context.Context, threadID uint, item *models.ContentItem) error {
			return fmt.Errorf("thread %d is not editable in status extracting", threadID)
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "POST", "/api/v1/threads/5/items", AddItemRequest{
		Kind: string(models.KindTyped),
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCorrectItemText(t *testing.T) {
	svc := &stubThreadService{
		correctFn: func(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error) {
			return &models.ExtractedText{
				ContentItemID: itemID,
				Text:          text,
				Revision:      2,
				Current:       true,
				Confidence:    1.0,
				Method:        models.ExtractionMethodUser,
			}, nil
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "PUT", "/api/v1/items/12/text", CorrectTextRequest{Text: "Dear family,"})
	assert.Equal(t, http.StatusOK, w.Code)

	var correction models.ExtractedText
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &correction))
	assert.Equal(t, uint(12), correction.ContentItemID)
	assert.Equal(t, 2, correction.Revision)
	assert.Equal(t, models.ExtractionMethodUser, correction.Method)
}

func TestCorrectItemTextConflictsWhileProcessing(t *testing.T) {
	svc := &stubThreadService{
		correctFn: func(ctx context.Context, itemID uint, text string) (*models.ExtractedText, error) {
			return nil, fmt.Errorf("thread is processing; corrections are not accepted")
		},
	}
	router := newRouter(&types.Dependencies{ThreadService: svc})

	w := doJSON(t, router, "PUT", "/api/v1/items/12/text", CorrectTextRequest{Text: "fixed"})
	assert.Equal(t, http.StatusConflict, w.Code)
}
