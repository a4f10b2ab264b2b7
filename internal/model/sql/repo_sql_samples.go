package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"lims/internal/entity"
)

// CreateSample persists a new sample record.
func (r *GormRepository) CreateSample(ctx context.Context, sample *entity.DbSample) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if sample == nil {
		return fmt.Errorf("sample is nil")
	}
	return r.db.WithContext(ctx).Create(sample).Error
}

// GetSampleByID loads a sample by ID.
func (r *GormRepository) GetSampleByID(ctx context.Context, id uint) (*entity.DbSample, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return nil, fmt.Errorf("invalid sample id")
	}
	var sample entity.DbSample
	if err := r.db.WithContext(ctx).First(&sample, id).Error; err != nil {
		return nil, err
	}
	return &sample, nil
}

// ListSamples returns paginated samples.
func (r *GormRepository) ListSamples(ctx context.Context, params *entity.SampleQuery) ([]entity.DbSample, *entity.Pagination, error) {
	if r == nil || r.db == nil {
		return nil, nil, fmt.Errorf("repository not initialised")
	}

	query := r.db.WithContext(ctx).Model(&entity.DbSample{})
	if params != nil {
		if trimmed := strings.TrimSpace(params.Status); trimmed != "" {
			query = query.Where("status = ?", trimmed)
		}
		if trimmed := strings.TrimSpace(params.Type); trimmed != "" {
			query = query.Where("type = ?", trimmed)
		}
		if keyword := strings.TrimSpace(params.Keyword); keyword != "" {
			kw := "%" + strings.ToLower(keyword) + "%"
			query = query.Where("LOWER(sample_no) LIKE ? OR LOWER(name) LIKE ?", kw, kw)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var page, limit int64 = 1, 20
	if params != nil {
		if params.Page > 0 {
			page = params.Page
		}
		if params.Limit > 0 {
			limit = params.Limit
		}
	}

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	var samples []entity.DbSample
	if err := query.Order("id DESC").Offset(int(offset)).Limit(int(limit)).Find(&samples).Error; err != nil {
		return nil, nil, err
	}

	return samples, r.calculatePagination(total, page, limit), nil
}

// UpdateSample updates sample fields.
func (r *GormRepository) UpdateSample(ctx context.Context, id uint, updates map[string]interface{}) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid sample id")
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&entity.DbSample{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteSample removes a sample by ID.
func (r *GormRepository) DeleteSample(ctx context.Context, id uint) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if id == 0 {
		return fmt.Errorf("invalid sample id")
	}
	result := r.db.WithContext(ctx).Delete(&entity.DbSample{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MaxSampleNoByPrefix returns the highest sample number carrying the prefix,
// or empty when none exists. Used for sequential sample numbering within a
// day; suffixes are zero-padded, so lexicographic order matches numeric order
// and deleted rows never free a number for reuse.
func (r *GormRepository) MaxSampleNoByPrefix(ctx context.Context, prefix string) (string, error) {
	if r == nil || r.db == nil {
		return "", fmt.Errorf("repository not initialised")
	}
	var sample entity.DbSample
	err := r.db.WithContext(ctx).
		Where("sample_no LIKE ?", strings.TrimSpace(prefix)+"%").
		Order("sample_no DESC").
		First(&sample).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return sample.SampleNo, nil
}

// CreateAttachment persists a new attachment record.
func (r *GormRepository) CreateAttachment(ctx context.Context, attachment *entity.DbAttachment) error {
	if r == nil || r.db == nil {
		return fmt.Errorf("repository not initialised")
	}
	if attachment == nil {
		return fmt.Errorf("attachment is nil")
	}
	return r.db.WithContext(ctx).Create(attachment).Error
}

// ListAttachmentsBySample returns attachments for a sample.
func (r *GormRepository) ListAttachmentsBySample(ctx context.Context, sampleID uint) ([]entity.DbAttachment, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("repository not initialised")
	}
	if sampleID == 0 {
		return nil, fmt.Errorf("invalid sample id")
	}
	var attachments []entity.DbAttachment
	if err := r.db.WithContext(ctx).Where("sample_id = ?", sampleID).Order("id DESC").Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}
