package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/entity"
)

func (h *HTTPHandler) ListRoles(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	roles, err := h.repo.ListRoles(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list roles")
		InternalError(c, "加载角色列表失败")
		return
	}

	summaries := make([]entity.RoleSummary, 0, len(roles))
	for idx := range roles {
		summaries = append(summaries, makeRoleSummary(&roles[idx]))
	}
	Success(c, summaries)
}

func (h *HTTPHandler) CreateRole(c *gin.Context) {
	var req entity.RoleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	role := &entity.DbRole{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.CreateRole(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "角色代码已存在")
			return
		}
		logrus.WithError(err).Error("failed to create role")
		InternalError(c, "创建角色失败")
		return
	}

	if len(req.PermissionIDs) > 0 {
		if err := h.repo.SetRolePermissions(ctx, role.ID, req.PermissionIDs); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "权限不存在")
				return
			}
			logrus.WithError(err).WithField("role_id", role.ID).Error("failed to assign permissions")
			InternalError(c, "分配权限失败")
			return
		}
	}

	created, err := h.repo.GetRoleByID(ctx, role.ID)
	if err != nil {
		logrus.WithError(err).Error("failed to reload role")
		InternalError(c, "加载角色失败")
		return
	}
	Created(c, makeRoleSummary(created))
}

func (h *HTTPHandler) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetRoleByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRoleNotFound, "角色不存在")
			return
		}
		logrus.WithError(err).Error("failed to load role for update")
		InternalError(c, "修改角色失败")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if len(updates) > 0 {
		if err := h.repo.UpdateRole(ctx, id, updates); err != nil {
			logrus.WithError(err).Error("failed to update role")
			InternalError(c, "修改角色失败")
			return
		}
	}

	if req.PermissionIDs != nil {
		if err := h.repo.SetRolePermissions(ctx, id, req.PermissionIDs); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, ErrCodeInvalidRequest, "权限不存在")
				return
			}
			logrus.WithError(err).WithField("role_id", id).Error("failed to assign permissions")
			InternalError(c, "分配权限失败")
			return
		}
	}

	updated, err := h.repo.GetRoleByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload role after update")
		InternalError(c, "加载角色失败")
		return
	}
	Success(c, makeRoleSummary(updated))
}

func (h *HTTPHandler) DeleteRole(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	role, err := h.repo.GetRoleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRoleNotFound, "角色不存在")
			return
		}
		logrus.WithError(err).Error("failed to load role for deletion")
		InternalError(c, "删除角色失败")
		return
	}

	// 内置角色是种子数据，删除会破坏引导流程
	if role.Code == entity.RoleCodeAdmin {
		Forbidden(c, "内置管理员角色不能删除")
		return
	}

	if err := h.repo.DeleteRole(ctx, id); err != nil {
		logrus.WithError(err).WithField("role_id", id).Error("failed to delete role")
		InternalError(c, "删除角色失败")
		return
	}

	NoContent(c)
}

func (h *HTTPHandler) AssignRolePermissions(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.AssignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.SetRolePermissions(ctx, id, req.PermissionIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeRoleNotFound, "角色或权限不存在")
			return
		}
		logrus.WithError(err).WithField("role_id", id).Error("failed to assign permissions")
		InternalError(c, "分配权限失败")
		return
	}

	updated, err := h.repo.GetRoleByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload role after permission change")
		InternalError(c, "加载角色失败")
		return
	}
	Success(c, makeRoleSummary(updated))
}

// ListPermissions 返回按模块分组的权限目录。
func (h *HTTPHandler) ListPermissions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	perms, err := h.repo.ListPermissions(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to list permissions")
		InternalError(c, "加载权限目录失败")
		return
	}

	groups := make([]entity.PermissionGroup, 0)
	index := make(map[string]int)
	for _, perm := range perms {
		summary := entity.PermissionSummary{
			ID:     perm.ID,
			Code:   perm.Code,
			Name:   perm.Name,
			Module: perm.Module,
		}
		pos, ok := index[perm.Module]
		if !ok {
			index[perm.Module] = len(groups)
			groups = append(groups, entity.PermissionGroup{
				Module:      perm.Module,
				Permissions: []entity.PermissionSummary{summary},
			})
			continue
		}
		groups[pos].Permissions = append(groups[pos].Permissions, summary)
	}

	Success(c, groups)
}

func makeRoleSummary(role *entity.DbRole) entity.RoleSummary {
	if role == nil {
		return entity.RoleSummary{}
	}
	codes := make([]string, 0, len(role.Permissions))
	for _, perm := range role.Permissions {
		codes = append(codes, perm.Code)
	}
	return entity.RoleSummary{
		ID:          role.ID,
		Code:        role.Code,
		Name:        role.Name,
		Description: role.Description,
		Permissions: codes,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}
