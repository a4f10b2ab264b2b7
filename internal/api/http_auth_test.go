package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lims/internal/auth"
	"lims/internal/entity"
)

// authStubRepo 模拟注册和登录路径的存储行为。
type authStubRepo struct {
	stubRepo
	mu           sync.Mutex
	created      []*entity.DbUser
	existing     map[string]*entity.DbUser
	lastLoginIDs []uint
}

func (s *authStubRepo) CreateUser(ctx context.Context, user *entity.DbUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.existing[user.Username]; ok {
		return gorm.ErrDuplicatedKey
	}
	user.ID = uint(len(s.created) + 100)
	s.created = append(s.created, user)
	return nil
}

func (s *authStubRepo) GetUserByLogin(ctx context.Context, login string) (*entity.DbUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.existing[strings.TrimSpace(login)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *authStubRepo) UpdateLastLogin(ctx context.Context, userID uint, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastLoginIDs = append(s.lastLoginIDs, userID)
	return nil
}

func newAuthRouter(t *testing.T, repo *authStubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := newTestHandler(t, repo)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterSuccess(t *testing.T) {
	repo := &authStubRepo{existing: map[string]*entity.DbUser{}}
	r := newAuthRouter(t, repo)

	w := postJSON(r, "/api/auth/register", entity.AuthRegisterRequest{
		Username: "tech01",
		Email:    "Tech01@lims.local",
		Password: "Abc12345",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !response.Success {
		t.Error("expected success=true")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.Email != "tech01@lims.local" {
		t.Errorf("expected lowercased email, got %s", created.Email)
	}
	if created.PasswordHash == "Abc12345" || created.PasswordHash == "" {
		t.Error("expected password to be hashed")
	}
	if err := auth.VerifyPassword(created.PasswordHash, "Abc12345"); err != nil {
		t.Errorf("expected stored hash to verify: %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	repo := &authStubRepo{existing: map[string]*entity.DbUser{}}
	r := newAuthRouter(t, repo)

	w := postJSON(r, "/api/auth/register", entity.AuthRegisterRequest{
		Username: "tech01",
		Email:    "tech01@lims.local",
		Password: "abc",
	})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for weak password, got %d", w.Code)
	}
	if len(repo.created) != 0 {
		t.Error("expected no user creation on validation failure")
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	repo := &authStubRepo{existing: map[string]*entity.DbUser{
		"tech01": {ID: 1, Username: "tech01"},
	}}
	r := newAuthRouter(t, repo)

	w := postJSON(r, "/api/auth/register", entity.AuthRegisterRequest{
		Username: "tech01",
		Email:    "tech01@lims.local",
		Password: "Abc12345",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Message != "用户名或邮箱已存在" {
		t.Errorf("unexpected conflict message: %s", response.Message)
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	repo := &authStubRepo{existing: map[string]*entity.DbUser{
		"tech01": {
			ID:           7,
			Username:     "tech01",
			Email:        "tech01@lims.local",
			PasswordHash: hash,
			Status:       entity.UserStatusActive,
		},
	}}
	r := newAuthRouter(t, repo)

	w := postJSON(r, "/api/auth/login", entity.AuthLoginRequest{
		Username: "tech01",
		Password: "Abc12345",
	})

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
	if token, _ := data["token"].(string); token == "" {
		t.Error("expected token in login response")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	hash, err := auth.HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	repo := &authStubRepo{existing: map[string]*entity.DbUser{
		"tech01": {
			ID:           7,
			Username:     "tech01",
			PasswordHash: hash,
			Status:       entity.UserStatusActive,
		},
	}}
	r := newAuthRouter(t, repo)

	unknown := postJSON(r, "/api/auth/login", entity.AuthLoginRequest{
		Username: "nobody",
		Password: "Abc12345",
	})
	wrongPassword := postJSON(r, "/api/auth/login", entity.AuthLoginRequest{
		Username: "tech01",
		Password: "Wrong9999",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("expected both failures to be 401, got %d and %d", unknown.Code, wrongPassword.Code)
	}

	var unknownResp, wrongResp entity.Response
	if err := json.Unmarshal(unknown.Body.Bytes(), &unknownResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if err := json.Unmarshal(wrongPassword.Body.Bytes(), &wrongResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	// 两种失败的消息和错误码必须完全一致
	if unknownResp.Message != wrongResp.Message {
		t.Errorf("expected identical messages, got %q vs %q", unknownResp.Message, wrongResp.Message)
	}
	if unknownResp.Error == nil || wrongResp.Error == nil || unknownResp.Error.Code != wrongResp.Error.Code {
		t.Errorf("expected identical error codes, got %+v vs %+v", unknownResp.Error, wrongResp.Error)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	hash, err := auth.HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	repo := &authStubRepo{existing: map[string]*entity.DbUser{
		"tech01": {
			ID:           7,
			Username:     "tech01",
			PasswordHash: hash,
			Status:       entity.UserStatusDisabled,
		},
	}}
	r := newAuthRouter(t, repo)

	w := postJSON(r, "/api/auth/login", entity.AuthLoginRequest{
		Username: "tech01",
		Password: "Abc12345",
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for disabled account, got %d", w.Code)
	}

	var response entity.Response
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error == nil || response.Error.Code != ErrCodeUserDisabled {
		t.Errorf("expected user disabled code, got %+v", response.Error)
	}
}
