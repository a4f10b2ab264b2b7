package sql

import (
	"context"

	"gorm.io/gorm"

	"lims/internal/entity"
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new repository instance
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Ping 检查底层数据库连接是否可用。
func (r *GormRepository) Ping(ctx context.Context) error {
	if r == nil || r.db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// calculatePagination calculates pagination metrics
func (r *GormRepository) calculatePagination(totalCount, page, limit int64) *entity.Pagination {
	return entity.NewPagination(totalCount, page, limit)
}
