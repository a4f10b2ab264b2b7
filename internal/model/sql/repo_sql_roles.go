package sql

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"lims/internal/entity"
)

// ListRoles returns all roles with their permissions preloaded.
func (r *GormRepository) ListRoles(ctx context.Context) ([]entity.DbRole, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var roles []entity.DbRole
	if err := r.db.WithContext(ctx).Preload("Permissions").Order("id ASC").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// GetRoleByID loads a role with permissions.
func (r *GormRepository) GetRoleByID(ctx context.Context, id uint) (*entity.DbRole, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid role id")
	}
	var role entity.DbRole
	if err := r.db.WithContext(ctx).Preload("Permissions").First(&role, id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// GetRoleByCode loads a role by its stable code.
func (r *GormRepository) GetRoleByCode(ctx context.Context, code string) (*entity.DbRole, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, fmt.Errorf("role code is empty")
	}
	var role entity.DbRole
	if err := r.db.WithContext(ctx).Preload("Permissions").Where("code = ?", trimmed).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// CreateRole persists a new role.
func (r *GormRepository) CreateRole(ctx context.Context, role *entity.DbRole) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if role == nil {
		return fmt.Errorf("role is nil")
	}
	return r.db.WithContext(ctx).Create(role).Error
}

// UpdateRole updates role fields.
func (r *GormRepository) UpdateRole(ctx context.Context, id uint, updates map[string]interface{}) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid role id")
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbRole{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteRole removes a role and its assignments.
func (r *GormRepository) DeleteRole(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid role id")
	}
	var role entity.DbRole
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&role).Association("Permissions").Clear(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&role).Association("Users").Clear(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&role).Error
}

// SetRolePermissions replaces the role's permission set.
func (r *GormRepository) SetRolePermissions(ctx context.Context, roleID uint, permissionIDs []uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if roleID == 0 {
		return fmt.Errorf("invalid role id")
	}

	var role entity.DbRole
	if err := r.db.WithContext(ctx).First(&role, roleID).Error; err != nil {
		return err
	}

	var perms []entity.DbPermission
	if len(permissionIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
			return err
		}
		if len(perms) != len(permissionIDs) {
			return gorm.ErrRecordNotFound
		}
	}

	return r.db.WithContext(ctx).Model(&role).Association("Permissions").Replace(perms)
}

// ListPermissions returns the full permission catalog.
func (r *GormRepository) ListPermissions(ctx context.Context) ([]entity.DbPermission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	var perms []entity.DbPermission
	if err := r.db.WithContext(ctx).Order("module ASC, id ASC").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

// EnsurePermission inserts a permission if its code is not present yet.
func (r *GormRepository) EnsurePermission(ctx context.Context, perm *entity.DbPermission) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if perm == nil || strings.TrimSpace(perm.Code) == "" {
		return fmt.Errorf("permission code is empty")
	}
	return r.db.WithContext(ctx).Where(entity.DbPermission{Code: perm.Code}).FirstOrCreate(perm).Error
}

// FindPermissionsByCodes loads permissions matching the given codes.
func (r *GormRepository) FindPermissionsByCodes(ctx context.Context, codes []string) ([]entity.DbPermission, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if len(codes) == 0 {
		return nil, nil
	}
	var perms []entity.DbPermission
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}
