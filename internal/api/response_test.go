package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"lims/internal/entity"
)

func TestSuccessEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"id": 1})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !response.Success {
		t.Error("expected success=true")
	}
	if response.Message != "操作成功" {
		t.Errorf("unexpected message: %s", response.Message)
	}
	if response.Error != nil {
		t.Error("expected error field to be absent")
	}
	if response.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestCreatedEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, gin.H{"id": 7})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !response.Success || response.Message != "创建成功" {
		t.Errorf("unexpected envelope: success=%v message=%s", response.Success, response.Message)
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	pagination := entity.NewPagination(23, 2, 10)
	Paginated(c, []int{1, 2, 3}, pagination)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response entity.ResponseItems
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Pagination == nil {
		t.Fatal("expected pagination metadata")
	}
	if response.Pagination.TotalPages != 3 {
		t.Errorf("expected 3 total pages for 23/10, got %d", response.Pagination.TotalPages)
	}
	if !response.Pagination.HasNext {
		t.Error("expected has_next on page 2 of 3")
	}
	if !response.Pagination.HasPrev {
		t.Error("expected has_prev on page 2")
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       int64
		limit      int64
		totalPages int64
		hasNext    bool
		hasPrev    bool
	}{
		{name: "EvenSplit", total: 20, page: 1, limit: 10, totalPages: 2, hasNext: true, hasPrev: false},
		{name: "CeilDivision", total: 23, page: 2, limit: 10, totalPages: 3, hasNext: true, hasPrev: true},
		{name: "LastPage", total: 23, page: 3, limit: 10, totalPages: 3, hasNext: false, hasPrev: true},
		{name: "Empty", total: 0, page: 1, limit: 10, totalPages: 0, hasNext: false, hasPrev: false},
		{name: "PartialPage", total: 5, page: 1, limit: 10, totalPages: 1, hasNext: false, hasPrev: false},
		{name: "SingleItem", total: 1, page: 1, limit: 20, totalPages: 1, hasNext: false, hasPrev: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := entity.NewPagination(tt.total, tt.page, tt.limit)
			if p.TotalPages != tt.totalPages {
				t.Errorf("expected total_pages %d, got %d", tt.totalPages, p.TotalPages)
			}
			if p.HasNext != tt.hasNext {
				t.Errorf("expected has_next %v, got %v", tt.hasNext, p.HasNext)
			}
			if p.HasPrev != tt.hasPrev {
				t.Errorf("expected has_prev %v, got %v", tt.hasPrev, p.HasPrev)
			}
		})
	}
}
