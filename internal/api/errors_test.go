package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"lims/internal/entity"
)

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		status         int
		code           string
		message        string
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "BadRequest",
			status:         http.StatusBadRequest,
			code:           ErrCodeInvalidRequest,
			message:        "无效的请求",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrCodeInvalidRequest,
			expectedMsg:    "无效的请求",
		},
		{
			name:           "NotFound",
			status:         http.StatusNotFound,
			code:           ErrCodeSampleNotFound,
			message:        "样品不存在",
			expectedStatus: http.StatusNotFound,
			expectedCode:   ErrCodeSampleNotFound,
			expectedMsg:    "样品不存在",
		},
		{
			name:           "InternalError",
			status:         http.StatusInternalServerError,
			code:           ErrCodeInternalError,
			message:        "服务器内部错误",
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   ErrCodeInternalError,
			expectedMsg:    "服务器内部错误",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.status, tt.code, tt.message)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var response entity.Response
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Success {
				t.Error("expected success=false")
			}
			if response.Error == nil {
				t.Fatal("expected error detail")
			}
			if response.Error.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %s", tt.expectedCode, response.Error.Code)
			}
			if response.Message != tt.expectedMsg {
				t.Errorf("expected message %s, got %s", tt.expectedMsg, response.Message)
			}
		})
	}
}

func TestValidationErrorJoinsViolations(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ValidationError(c, []string{"密码长度不能少于6位", "密码必须包含数字"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != ErrCodeValidation {
		t.Fatalf("expected validation error code, got %+v", response.Error)
	}
	if response.Error.Details == nil {
		t.Error("expected details to carry the violation list")
	}
}

func TestRespondErrorTranslations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetDevelopmentMode(false)

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{name: "RecordNotFound", err: gorm.ErrRecordNotFound, expectedStatus: http.StatusNotFound, expectedCode: ErrCodeNotFound},
		{name: "DuplicatedKey", err: gorm.ErrDuplicatedKey, expectedStatus: http.StatusConflict, expectedCode: ErrCodeDuplicateRecord},
		{name: "ExpiredToken", err: jwt.ErrTokenExpired, expectedStatus: http.StatusUnauthorized, expectedCode: ErrCodeSessionExpired},
		{name: "Unknown", err: errors.New("boom"), expectedStatus: http.StatusInternalServerError, expectedCode: ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tt.err)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}

			var response entity.Response
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Error == nil || response.Error.Code != tt.expectedCode {
				t.Errorf("expected code %s, got %+v", tt.expectedCode, response.Error)
			}
		})
	}
}

func TestRespondErrorHidesInternalsInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetDevelopmentMode(false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, errors.New("pq: connection refused to 10.0.0.5"))

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Message != "服务器内部错误" {
		t.Errorf("expected generic message, got %s", response.Message)
	}
	if response.Error != nil && response.Error.Stack != "" {
		t.Error("expected no stack trace in production mode")
	}
}

func TestRespondErrorExposesStackInDevelopment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetDevelopmentMode(true)
	defer SetDevelopmentMode(false)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, errors.New("boom"))

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Message != "boom" {
		t.Errorf("expected original message in development mode, got %s", response.Message)
	}
	if response.Error == nil || response.Error.Stack == "" {
		t.Error("expected stack trace in development mode")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetDevelopmentMode(false)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) {
		panic("unexpected state")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Success {
		t.Error("expected success=false")
	}
	if response.Error == nil || response.Error.Code != ErrCodeInternalError {
		t.Errorf("expected internal error code, got %+v", response.Error)
	}
	if response.Error != nil && response.Error.Stack != "" {
		t.Error("expected no stack in production mode")
	}
	if response.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestNotFoundHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.NoRoute(NotFoundHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/definitely/missing", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != ErrCodeNotFound {
		t.Errorf("expected not found code, got %+v", response.Error)
	}
}

func TestTimestampIsUTC(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	before := time.Now().UTC().Add(-time.Second)
	Success(c, nil)
	after := time.Now().UTC().Add(time.Second)

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Timestamp.Before(before) || response.Timestamp.After(after) {
		t.Errorf("timestamp %v outside expected window", response.Timestamp)
	}
}
