package entity

import "time"

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// DbUser represents a persisted user account.
//
// Accounts are never hard-deleted; deactivation flips Status to disabled.
type DbUser struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Username     string     `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	DisplayName  string     `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	Phone        string     `gorm:"column:phone;type:varchar(32)" json:"phone"`
	Department   string     `gorm:"column:department;type:varchar(128)" json:"department"`
	Status       string     `gorm:"column:status;type:varchar(20);index;not null;default:active" json:"status"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at"`
	LastLoginIP  string     `gorm:"column:last_login_ip;type:varchar(64)" json:"last_login_ip"`

	Roles []DbRole `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

// TableName overrides default pluralised name.
func (DbUser) TableName() string {
	return "users"
}

// IsActive 判断账户是否处于激活状态。
func (u *DbUser) IsActive() bool {
	return u != nil && u.Status == UserStatusActive
}

// RoleCodes 返回用户全部角色代码。
func (u *DbUser) RoleCodes() []string {
	if u == nil {
		return nil
	}
	codes := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		codes = append(codes, role.Code)
	}
	return codes
}

// PermissionCodes 返回用户通过所有角色可达的权限代码去重并集。
func (u *DbUser) PermissionCodes() []string {
	if u == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var codes []string
	for _, role := range u.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Code]; ok {
				continue
			}
			seen[perm.Code] = struct{}{}
			codes = append(codes, perm.Code)
		}
	}
	return codes
}

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Phone       string     `json:"phone,omitempty"`
	Department  string     `json:"department,omitempty"`
	Status      string     `json:"status"`
	Roles       []string   `json:"roles"`
	Permissions []string   `json:"permissions,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserQuery supports listing users with pagination.
type UserQuery struct {
	BaseParams
	Status  string `json:"status" form:"status" query:"status"`
	Keyword string `json:"keyword" form:"keyword" query:"keyword"`
}

type AuthLoginRequest struct {
	// Username 同时接受用户名或邮箱
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthRegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Department  string `json:"department"`
}

type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type UserCreateRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=64"`
	Email       string `json:"email" binding:"required,email"`
	// Password 为空时由服务端生成随机密码并在响应中返回一次
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Department  string `json:"department"`
	RoleIDs     []uint `json:"role_ids"`
}

type UserUpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Department  *string `json:"department,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type AssignRolesRequest struct {
	RoleIDs []uint `json:"role_ids" binding:"required"`
}

// ResetPasswordResponse carries the generated password exactly once.
type ResetPasswordResponse struct {
	Password string `json:"password"`
}
