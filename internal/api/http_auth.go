package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/auth"
	"lims/internal/entity"
)

func (h *HTTPHandler) Register(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "用户服务不可用")
		return
	}

	var req entity.AuthRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	if username == "" || email == "" || password == "" {
		BadRequest(c, ErrCodeInvalidRequest, "用户名、邮箱和密码不能为空")
		return
	}

	if result := auth.ValidatePasswordStrength(password); !result.IsValid {
		ValidationError(c, result.Errors)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		InternalError(c, "注册失败")
		return
	}

	user := &entity.DbUser{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Department:   strings.TrimSpace(req.Department),
		Status:       entity.UserStatusActive,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "用户名或邮箱已存在")
			return
		}
		logrus.WithError(err).Error("failed to create user")
		InternalError(c, "注册失败")
		return
	}

	token, expiresAt, err := h.authManager.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("failed to create token for user")
		InternalError(c, "创建会话失败")
		return
	}

	Created(c, entity.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      makeUserSummary(user, false),
	})
}

func (h *HTTPHandler) Login(c *gin.Context) {
	if h.repo == nil {
		ServiceUnavailable(c, "用户服务不可用")
		return
	}

	var req entity.AuthLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	login := strings.TrimSpace(req.Username)
	password := strings.TrimSpace(req.Password)
	if login == "" || password == "" {
		BadRequest(c, ErrCodeInvalidRequest, "用户名和密码不能为空")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	// 用户不存在和密码错误返回完全相同的提示，不暴露是哪一步失败
	user, err := h.repo.GetUserByLogin(ctx, login)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithError(err).Error("failed to load user during login")
			InternalError(c, "登录失败")
			return
		}
		logrus.WithField("login", login).Warn("login attempt for unknown identity")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "用户名或密码错误")
		return
	}

	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		logrus.WithField("login", login).Warn("password verification failed")
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "用户名或密码错误")
		return
	}

	if !user.IsActive() {
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeUserDisabled, "账户已被禁用")
		return
	}

	token, expiresAt, err := h.authManager.GenerateToken(user)
	if err != nil {
		logrus.WithError(err).Error("failed to generate token")
		InternalError(c, "创建会话失败")
		return
	}

	// 最后登录时间的更新不阻塞也不影响本次响应，失败只记日志
	go h.recordLastLogin(user.ID, c.ClientIP())

	SuccessMessage(c, "登录成功", entity.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      makeUserSummary(user, true),
	})
}

func (h *HTTPHandler) recordLastLogin(userID uint, ip string) {
	ctx, cancel := context.WithTimeout(context.Background(), repoTimeout)
	defer cancel()
	if err := h.repo.UpdateLastLogin(ctx, userID, ip); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("failed to record last login")
	}
}

func (h *HTTPHandler) Me(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "需要登录")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	dbUser, err := h.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to load user profile")
		InternalError(c, "加载用户信息失败")
		return
	}

	Success(c, makeUserSummary(dbUser, true))
}

func (h *HTTPHandler) ChangePassword(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "需要登录")
		return
	}

	var req entity.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	newPassword := strings.TrimSpace(req.NewPassword)
	if result := auth.ValidatePasswordStrength(newPassword); !result.IsValid {
		ValidationError(c, result.Errors)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	dbUser, err := h.repo.GetUserByID(ctx, user.ID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to load user for password change")
		InternalError(c, "修改密码失败")
		return
	}

	if err := auth.VerifyPassword(dbUser.PasswordHash, strings.TrimSpace(req.OldPassword)); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeInvalidCredentials, "原密码错误")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		logrus.WithError(err).Error("failed to hash new password")
		InternalError(c, "修改密码失败")
		return
	}

	if err := h.repo.UpdateUser(ctx, dbUser.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		logrus.WithError(err).WithField("user_id", dbUser.ID).Error("failed to update password")
		InternalError(c, "修改密码失败")
		return
	}

	SuccessMessage(c, "密码修改成功", nil)
}

func makeUserSummary(user *entity.DbUser, withPermissions bool) entity.UserSummary {
	if user == nil {
		return entity.UserSummary{}
	}
	summary := entity.UserSummary{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Phone:       user.Phone,
		Department:  user.Department,
		Status:      user.Status,
		Roles:       user.RoleCodes(),
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if withPermissions {
		summary.Permissions = user.PermissionCodes()
	}
	return summary
}
