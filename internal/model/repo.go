package model

import (
	"context"

	"lims/internal/entity"
)

// Repository 定义数据库操作接口
type Repository interface {
	// 健康检查
	Ping(ctx context.Context) error

	// 用户管理
	CreateUser(ctx context.Context, user *entity.DbUser) error
	UpdateUser(ctx context.Context, id uint, updates map[string]interface{}) error
	GetUserByID(ctx context.Context, id uint) (*entity.DbUser, error)
	GetUserByLogin(ctx context.Context, login string) (*entity.DbUser, error)
	ListUsers(ctx context.Context, params *entity.UserQuery) ([]entity.DbUser, *entity.Pagination, error)
	CountUsers(ctx context.Context) (int64, error)
	SetUserRoles(ctx context.Context, userID uint, roleIDs []uint) error
	UpdateLastLogin(ctx context.Context, userID uint, ip string) error

	// 角色与权限
	ListRoles(ctx context.Context) ([]entity.DbRole, error)
	GetRoleByID(ctx context.Context, id uint) (*entity.DbRole, error)
	GetRoleByCode(ctx context.Context, code string) (*entity.DbRole, error)
	CreateRole(ctx context.Context, role *entity.DbRole) error
	UpdateRole(ctx context.Context, id uint, updates map[string]interface{}) error
	DeleteRole(ctx context.Context, id uint) error
	SetRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error
	ListPermissions(ctx context.Context) ([]entity.DbPermission, error)
	EnsurePermission(ctx context.Context, perm *entity.DbPermission) error
	FindPermissionsByCodes(ctx context.Context, codes []string) ([]entity.DbPermission, error)

	// 样品管理
	CreateSample(ctx context.Context, sample *entity.DbSample) error
	GetSampleByID(ctx context.Context, id uint) (*entity.DbSample, error)
	ListSamples(ctx context.Context, params *entity.SampleQuery) ([]entity.DbSample, *entity.Pagination, error)
	UpdateSample(ctx context.Context, id uint, updates map[string]interface{}) error
	DeleteSample(ctx context.Context, id uint) error
	MaxSampleNoByPrefix(ctx context.Context, prefix string) (string, error)

	// 附件
	CreateAttachment(ctx context.Context, attachment *entity.DbAttachment) error
	ListAttachmentsBySample(ctx context.Context, sampleID uint) ([]entity.DbAttachment, error)
}
