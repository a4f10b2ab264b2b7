package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/auth"
	"lims/internal/entity"
)

func (h *HTTPHandler) ListUsers(c *gin.Context) {
	var query entity.UserQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "无效的查询参数")
		return
	}
	query.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	users, pagination, err := h.repo.ListUsers(ctx, &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list users")
		InternalError(c, "加载用户列表失败")
		return
	}

	summaries := make([]entity.UserSummary, 0, len(users))
	for idx := range users {
		summaries = append(summaries, makeUserSummary(&users[idx], false))
	}

	Paginated(c, summaries, pagination)
}

func (h *HTTPHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).WithField("user_id", id).Error("failed to load user")
		InternalError(c, "加载用户失败")
		return
	}

	Success(c, makeUserSummary(user, true))
}

func (h *HTTPHandler) CreateUser(c *gin.Context) {
	var req entity.UserCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" {
		BadRequest(c, ErrCodeInvalidRequest, "用户名和邮箱不能为空")
		return
	}

	// 未提供密码时生成随机密码，创建成功后返回一次
	password := strings.TrimSpace(req.Password)
	generated := false
	if password == "" {
		var err error
		password, err = auth.GenerateRandomPassword(auth.DefaultRandomPasswordLength)
		if err != nil {
			logrus.WithError(err).Error("failed to generate password")
			InternalError(c, "创建用户失败")
			return
		}
		generated = true
	} else if result := auth.ValidatePasswordStrength(password); !result.IsValid {
		ValidationError(c, result.Errors)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password for new user")
		InternalError(c, "创建用户失败")
		return
	}

	user := &entity.DbUser{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Phone:        strings.TrimSpace(req.Phone),
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
		InternalError(c, "创建用户失败")
		return
	}

	if len(req.RoleIDs) > 0 {
		if err := h.repo.SetUserRoles(ctx, user.ID, req.RoleIDs); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeRoleNotFound, "角色不存在")
				return
			}
			logrus.WithError(err).WithField("user_id", user.ID).Error("failed to assign roles")
			InternalError(c, "分配角色失败")
			return
		}
	}

	payload := gin.H{"user": makeUserSummary(user, false)}
	if generated {
		payload["password"] = password
	}
	Created(c, payload)
}

func (h *HTTPHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	dbUser, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user for update")
		InternalError(c, "修改用户失败")
		return
	}

	updates := make(map[string]interface{})

	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Department != nil {
		updates["department"] = strings.TrimSpace(*req.Department)
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if status != entity.UserStatusActive && status != entity.UserStatusDisabled {
			BadRequest(c, ErrCodeInvalidRequest, "无效的账户状态")
			return
		}
		requestUser := CurrentUser(c)
		if requestUser != nil && requestUser.ID == dbUser.ID && status == entity.UserStatusDisabled {
			BadRequest(c, ErrCodeInvalidRequest, "不能停用当前账户")
			return
		}
		updates["status"] = status
	}

	if len(updates) == 0 {
		Success(c, makeUserSummary(dbUser, false))
		return
	}

	if err := h.repo.UpdateUser(ctx, dbUser.ID, updates); err != nil {
		logrus.WithError(err).Error("failed to update user")
		InternalError(c, "修改用户失败")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, dbUser.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to reload user after update")
		InternalError(c, "加载用户失败")
		return
	}

	Success(c, makeUserSummary(updated, false))
}

// DisableUser 停用用户账户。用户记录不做物理删除，只翻转状态。
func (h *HTTPHandler) DisableUser(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	requestUser := CurrentUser(c)
	if requestUser != nil && requestUser.ID == id {
		BadRequest(c, ErrCodeInvalidRequest, "不能停用当前账户")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user for disable")
		InternalError(c, "停用用户失败")
		return
	}

	if err := h.repo.UpdateUser(ctx, id, map[string]interface{}{"status": entity.UserStatusDisabled}); err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to disable user")
		InternalError(c, "停用用户失败")
		return
	}

	NoContent(c)
}

func (h *HTTPHandler) ResetUserPassword(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeUserNotFound, "用户不存在")
			return
		}
		logrus.WithError(err).Error("failed to load user for password reset")
		InternalError(c, "重置密码失败")
		return
	}

	password, err := auth.GenerateRandomPassword(auth.DefaultRandomPasswordLength)
	if err != nil {
		logrus.WithError(err).Error("failed to generate password")
		InternalError(c, "重置密码失败")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		logrus.WithError(err).Error("failed to hash password")
		InternalError(c, "重置密码失败")
		return
	}

	if err := h.repo.UpdateUser(ctx, id, map[string]interface{}{"password_hash": hash}); err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to reset password")
		InternalError(c, "重置密码失败")
		return
	}

	SuccessMessage(c, "密码已重置", entity.ResetPasswordResponse{Password: password})
}

func (h *HTTPHandler) AssignUserRoles(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.SetUserRoles(ctx, id, req.RoleIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRoleNotFound, "用户或角色不存在")
			return
		}
		logrus.WithError(err).WithField("user_id", id).Error("failed to assign roles")
		InternalError(c, "分配角色失败")
		return
	}

	updated, err := h.repo.GetUserByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload user after role change")
		InternalError(c, "加载用户失败")
		return
	}

	Success(c, makeUserSummary(updated, true))
}

func parseIDParam(c *gin.Context) (uint, bool) {
	idValue := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseUint(idValue, 10, 64)
	if err != nil || id == 0 {
		BadRequest(c, ErrCodeInvalidRequest, "无效的 ID")
		return 0, false
	}
	return uint(id), true
}
