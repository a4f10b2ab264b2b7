package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/auth"
	"lims/internal/entity"
)

type seedPermission struct {
	Code   string
	Name   string
	Module string
}

// 权限目录。Module 仅用于前端分组展示；submission/experiment/report
// 模块的路由尚未开放，代码先行占位保证目录稳定。
var permissionCatalog = []seedPermission{
	{Code: "sample.list", Name: "查看样品", Module: "sample"},
	{Code: "sample.create", Name: "登记样品", Module: "sample"},
	{Code: "sample.update", Name: "修改样品", Module: "sample"},
	{Code: "sample.delete", Name: "删除样品", Module: "sample"},
	{Code: "sample.receive", Name: "接收样品", Module: "sample"},
	{Code: "sample.upload", Name: "上传附件", Module: "sample"},

	{Code: "submission.list", Name: "查看送检单", Module: "submission"},
	{Code: "submission.create", Name: "创建送检单", Module: "submission"},

	{Code: "experiment.list", Name: "查看实验", Module: "experiment"},
	{Code: "experiment.create", Name: "创建实验", Module: "experiment"},

	{Code: "report.list", Name: "查看报告", Module: "report"},
	{Code: "report.generate", Name: "生成报告", Module: "report"},

	{Code: "user.list", Name: "查看用户", Module: "user"},
	{Code: "user.create", Name: "创建用户", Module: "user"},
	{Code: "user.update", Name: "修改用户", Module: "user"},
	{Code: "user.delete", Name: "停用用户", Module: "user"},
	{Code: "user.reset_password", Name: "重置密码", Module: "user"},
	{Code: "user.assign_roles", Name: "分配角色", Module: "user"},

	{Code: "role.list", Name: "查看角色", Module: "role"},
	{Code: "role.create", Name: "创建角色", Module: "role"},
	{Code: "role.update", Name: "修改角色", Module: "role"},
	{Code: "role.delete", Name: "删除角色", Module: "role"},
	{Code: "role.assign_permissions", Name: "分配权限", Module: "role"},
}

var defaultRoles = []struct {
	Code        string
	Name        string
	Description string
	// 权限代码；"*" 表示目录内全部权限
	Permissions []string
}{
	{
		Code:        entity.RoleCodeAdmin,
		Name:        "管理员",
		Description: "拥有全部权限",
		Permissions: []string{"*"},
	},
	{
		Code:        entity.RoleCodeTechnician,
		Name:        "检测员",
		Description: "样品登记与检测流程",
		Permissions: []string{
			"sample.list", "sample.create", "sample.update", "sample.receive", "sample.upload",
			"submission.list", "experiment.list", "experiment.create", "report.list",
		},
	},
	{
		Code:        entity.RoleCodeViewer,
		Name:        "访客",
		Description: "只读访问",
		Permissions: []string{"sample.list", "submission.list", "experiment.list", "report.list"},
	},
}

// SeedAccessControl 初始化权限目录、默认角色和引导管理员账户。
// 重复执行是幂等的。
func SeedAccessControl(ctx context.Context, repo Repository) error {
	if repo == nil {
		return nil
	}

	for _, item := range permissionCatalog {
		perm := entity.DbPermission{Code: item.Code, Name: item.Name, Module: item.Module}
		if err := repo.EnsurePermission(ctx, &perm); err != nil {
			return fmt.Errorf("seed permission %s: %w", item.Code, err)
		}
	}

	allPerms, err := repo.ListPermissions(ctx)
	if err != nil {
		return fmt.Errorf("list permissions: %w", err)
	}

	for _, roleDef := range defaultRoles {
		role, err := repo.GetRoleByCode(ctx, roleDef.Code)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load role %s: %w", roleDef.Code, err)
			}
			role = &entity.DbRole{
				Code:        roleDef.Code,
				Name:        roleDef.Name,
				Description: roleDef.Description,
			}
			if err := repo.CreateRole(ctx, role); err != nil {
				return fmt.Errorf("create role %s: %w", roleDef.Code, err)
			}
		} else if len(role.Permissions) > 0 {
			// 已存在且已配置权限的角色不覆盖，避免冲掉运营侧的调整
			continue
		}

		permIDs := resolvePermissionIDs(allPerms, roleDef.Permissions)
		if err := repo.SetRolePermissions(ctx, role.ID, permIDs); err != nil {
			return fmt.Errorf("assign permissions to role %s: %w", roleDef.Code, err)
		}
	}

	return seedAdminUser(ctx, repo)
}

func resolvePermissionIDs(catalog []entity.DbPermission, codes []string) []uint {
	if len(codes) == 1 && codes[0] == "*" {
		ids := make([]uint, 0, len(catalog))
		for _, perm := range catalog {
			ids = append(ids, perm.ID)
		}
		return ids
	}
	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}
	var ids []uint
	for _, perm := range catalog {
		if _, ok := wanted[perm.Code]; ok {
			ids = append(ids, perm.ID)
		}
	}
	return ids
}

// seedAdminUser 在用户表为空时创建引导管理员，随机密码只在日志输出一次。
func seedAdminUser(ctx context.Context, repo Repository) error {
	count, err := repo.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password, err := auth.GenerateRandomPassword(auth.DefaultRandomPasswordLength)
	if err != nil {
		return fmt.Errorf("generate admin password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	adminRole, err := repo.GetRoleByCode(ctx, entity.RoleCodeAdmin)
	if err != nil {
		return fmt.Errorf("load admin role: %w", err)
	}

	adminUser := &entity.DbUser{
		Username:     "admin",
		Email:        "admin@lims.local",
		PasswordHash: hash,
		DisplayName:  "系统管理员",
		Status:       entity.UserStatusActive,
	}
	if err := repo.CreateUser(ctx, adminUser); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	if err := repo.SetUserRoles(ctx, adminUser.ID, []uint{adminRole.ID}); err != nil {
		return fmt.Errorf("assign admin role: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"username": adminUser.Username,
		"password": strings.TrimSpace(password),
	}).Warn("bootstrap admin account created, change the password after first login")
	return nil
}
