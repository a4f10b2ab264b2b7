package entity

import "time"

const (
	RoleCodeAdmin      = "admin"
	RoleCodeTechnician = "technician"
	RoleCodeViewer     = "viewer"
)

// DbRole 表示可分配给用户的角色，角色与权限为多对多关系。
type DbRole struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Code        string    `gorm:"column:code;type:varchar(64);uniqueIndex;not null" json:"code"`
	Name        string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Description string    `gorm:"column:description;type:varchar(255)" json:"description"`

	Permissions []DbPermission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	Users       []DbUser       `gorm:"many2many:user_roles" json:"-"`
}

// TableName 指定表名。
func (DbRole) TableName() string {
	return "roles"
}

// DbPermission 表示一个原子权限，Code 为 module.action 形式的稳定标识。
//
// Module 仅用于前端分组展示，服务端不据此做任何判断。
type DbPermission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Code      string    `gorm:"column:code;type:varchar(128);uniqueIndex;not null" json:"code"`
	Name      string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Module    string    `gorm:"column:module;type:varchar(64);index" json:"module"`
}

// TableName 指定表名。
func (DbPermission) TableName() string {
	return "permissions"
}

// RoleSummary 返回给客户端的角色描述。
type RoleSummary struct {
	ID          uint      `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RoleCreateRequest struct {
	Code          string `json:"code" binding:"required,min=2,max=64"`
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	PermissionIDs []uint `json:"permission_ids"`
}

type RoleUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	PermissionIDs []uint  `json:"permission_ids,omitempty"`
}

type AssignPermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" binding:"required"`
}

// PermissionSummary 权限目录条目。
type PermissionSummary struct {
	ID     uint   `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Module string `json:"module"`
}

// PermissionGroup 按模块分组的权限目录，供前端展示。
type PermissionGroup struct {
	Module      string              `json:"module"`
	Permissions []PermissionSummary `json:"permissions"`
}
