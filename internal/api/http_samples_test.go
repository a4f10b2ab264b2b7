package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lims/internal/entity"
)

// sampleStubRepo 模拟样品存储，按编号唯一约束拒绝重复。
type sampleStubRepo struct {
	stubRepo
	samples map[uint]*entity.DbSample
	nextID  uint
}

func newSampleStubRepo(samples ...*entity.DbSample) *sampleStubRepo {
	repo := &sampleStubRepo{
		stubRepo: stubRepo{users: map[uint]*entity.DbUser{1: activeUser()}},
		samples:  map[uint]*entity.DbSample{},
		nextID:   1,
	}
	for _, sample := range samples {
		repo.samples[sample.ID] = sample
		if sample.ID >= repo.nextID {
			repo.nextID = sample.ID + 1
		}
	}
	return repo
}

func (s *sampleStubRepo) CreateSample(ctx context.Context, sample *entity.DbSample) error {
	for _, existing := range s.samples {
		if existing.SampleNo == sample.SampleNo {
			return gorm.ErrDuplicatedKey
		}
	}
	sample.ID = s.nextID
	s.nextID++
	sample.CreatedAt = time.Now().UTC()
	sample.UpdatedAt = sample.CreatedAt
	s.samples[sample.ID] = sample
	return nil
}

func (s *sampleStubRepo) GetSampleByID(ctx context.Context, id uint) (*entity.DbSample, error) {
	sample, ok := s.samples[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *sample
	return &copied, nil
}

func (s *sampleStubRepo) UpdateSample(ctx context.Context, id uint, updates map[string]interface{}) error {
	sample, ok := s.samples[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(string); ok {
		sample.Status = status
	}
	if receivedAt, ok := updates["received_at"].(*time.Time); ok {
		sample.ReceivedAt = receivedAt
	}
	if remark, ok := updates["remark"].(string); ok {
		sample.Remark = remark
	}
	if name, ok := updates["name"].(string); ok {
		sample.Name = name
	}
	sample.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *sampleStubRepo) DeleteSample(ctx context.Context, id uint) error {
	if _, ok := s.samples[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.samples, id)
	return nil
}

func (s *sampleStubRepo) MaxSampleNoByPrefix(ctx context.Context, prefix string) (string, error) {
	max := ""
	for _, sample := range s.samples {
		if strings.HasPrefix(sample.SampleNo, prefix) && sample.SampleNo > max {
			max = sample.SampleNo
		}
	}
	return max, nil
}

func newSampleRouter(t *testing.T, repo *sampleStubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, repo)
	r := gin.New()
	r.POST("/api/samples", withUser(h.CreateSample))
	r.GET("/api/samples/:id", withUser(h.GetSample))
	r.POST("/api/samples/:id/receive", withUser(h.ReceiveSample))
	r.DELETE("/api/samples/:id", withUser(h.DeleteSample))
	return r
}

// withUser 直接注入认证用户，跳过 Token 流程。
func withUser(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(currentUserContextKey, &RequestUser{ID: 1, Username: "tech01"})
		handler(c)
	}
}

func TestCreateSampleAssignsDailyNumber(t *testing.T) {
	repo := newSampleStubRepo()
	r := newSampleRouter(t, repo)

	for i := 1; i <= 3; i++ {
		w := postJSON(r, "/api/samples", entity.SampleCreateRequest{Name: fmt.Sprintf("血样-%d", i)})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	expectedPrefix := "S" + time.Now().UTC().Format("20060102") + "-"
	seen := map[string]bool{}
	for _, sample := range repo.samples {
		if !strings.HasPrefix(sample.SampleNo, expectedPrefix) {
			t.Errorf("unexpected sample number %s", sample.SampleNo)
		}
		if seen[sample.SampleNo] {
			t.Errorf("duplicate sample number %s", sample.SampleNo)
		}
		seen[sample.SampleNo] = true
		if sample.Status != entity.SampleStatusPending {
			t.Errorf("expected new sample to be pending, got %s", sample.Status)
		}
	}
	if !seen[expectedPrefix+"0001"] || !seen[expectedPrefix+"0003"] {
		t.Errorf("expected sequential numbering, got %v", seen)
	}
}

func TestCreateSampleNumberNotReusedAfterDelete(t *testing.T) {
	repo := newSampleStubRepo()
	r := newSampleRouter(t, repo)

	for i := 1; i <= 2; i++ {
		w := postJSON(r, "/api/samples", entity.SampleCreateRequest{Name: fmt.Sprintf("血样-%d", i)})
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/samples/1", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for delete, got %d", w.Code)
	}

	w = postJSON(r, "/api/samples", entity.SampleCreateRequest{Name: "血样-3"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 after delete, got %d: %s", w.Code, w.Body.String())
	}

	prefix := "S" + time.Now().UTC().Format("20060102") + "-"
	nos := map[string]bool{}
	for _, sample := range repo.samples {
		nos[sample.SampleNo] = true
	}
	if !nos[prefix+"0003"] {
		t.Errorf("expected numbering to continue past deleted sample, got %v", nos)
	}
	if len(nos) != 2 {
		t.Errorf("expected 2 distinct sample numbers, got %v", nos)
	}
}

func TestReceiveSampleTransition(t *testing.T) {
	repo := newSampleStubRepo(&entity.DbSample{
		ID:       5,
		SampleNo: "S20260901-0001",
		Name:     "血样",
		Status:   entity.SampleStatusPending,
	})
	r := newSampleRouter(t, repo)

	w := postJSON(r, "/api/samples/5/receive", entity.SampleReceiveRequest{Remark: "外观完好"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	sample := repo.samples[5]
	if sample.Status != entity.SampleStatusReceived {
		t.Errorf("expected received status, got %s", sample.Status)
	}
	if sample.ReceivedAt == nil {
		t.Error("expected received_at to be set")
	}
	if sample.Remark != "外观完好" {
		t.Errorf("expected remark recorded, got %s", sample.Remark)
	}
}

func TestReceiveSampleRejectsNonPending(t *testing.T) {
	repo := newSampleStubRepo(&entity.DbSample{
		ID:       5,
		SampleNo: "S20260901-0001",
		Status:   entity.SampleStatusReceived,
	})
	r := newSampleRouter(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/samples/5/receive", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for repeated receive, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != ErrCodeInvalidTransition {
		t.Errorf("expected invalid transition code, got %+v", response.Error)
	}
}

func TestReceiveSampleNotFound(t *testing.T) {
	repo := newSampleStubRepo()
	r := newSampleRouter(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/samples/99/receive", bytes.NewReader(nil))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing sample, got %d", w.Code)
	}
}

func TestGetSample(t *testing.T) {
	repo := newSampleStubRepo(&entity.DbSample{
		ID:       5,
		SampleNo: "S20260901-0001",
		Name:     "血样",
		Status:   entity.SampleStatusPending,
	})
	r := newSampleRouter(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/samples/5", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, ok := response.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", response.Data)
	}
	if data["sample_no"] != "S20260901-0001" {
		t.Errorf("unexpected sample_no: %v", data["sample_no"])
	}
}

func TestGetSampleRejectsBadID(t *testing.T) {
	repo := newSampleStubRepo()
	r := newSampleRouter(t, repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/samples/not-a-number", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", w.Code)
	}
}
