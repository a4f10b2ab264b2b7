package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"lims/internal/entity"
)

type healthStubRepo struct {
	stubRepo
	pingErr error
}

func (s *healthStubRepo) Ping(ctx context.Context) error {
	return s.pingErr
}

func newHealthRouter(t *testing.T, repo *healthStubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.StorageType = "local"
	h, err := NewHTTPHandler(cfg, repo, stubStorage{})
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	r := gin.New()
	r.GET("/health", h.Health)
	return r
}

func TestHealthReportsStatus(t *testing.T) {
	r := newHealthRouter(t, &healthStubRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	data, ok := response.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected object data, got %T", response.Data)
	}
	if data["status"] != "ok" {
		t.Errorf("unexpected status: %v", data["status"])
	}
	if data["database"] != true {
		t.Errorf("expected database connectivity to be true, got %v", data["database"])
	}
	if data["storage_type"] != "local" {
		t.Errorf("unexpected storage_type: %v", data["storage_type"])
	}
	if _, ok := data["uptime_seconds"]; !ok {
		t.Error("expected uptime_seconds in payload")
	}
}

func TestHealthDatabaseDown(t *testing.T) {
	r := newHealthRouter(t, &healthStubRepo{pingErr: errors.New("dial tcp: connection refused")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database ping fails, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Success {
		t.Error("expected success=false when database is down")
	}
}
