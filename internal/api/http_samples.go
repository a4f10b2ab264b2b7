package api

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/entity"
)

const sampleNoCreateRetries = 3

func (h *HTTPHandler) ListSamples(c *gin.Context) {
	var query entity.SampleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "无效的查询参数")
		return
	}
	query.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	samples, pagination, err := h.repo.ListSamples(ctx, &query)
	if err != nil {
		logrus.WithError(err).Error("failed to list samples")
		InternalError(c, "加载样品列表失败")
		return
	}

	summaries := make([]entity.SampleSummary, 0, len(samples))
	for idx := range samples {
		summaries = append(summaries, makeSampleSummary(&samples[idx]))
	}
	Paginated(c, summaries, pagination)
}

func (h *HTTPHandler) GetSample(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	sample, err := h.repo.GetSampleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).WithField("sample_id", id).Error("failed to load sample")
		InternalError(c, "加载样品失败")
		return
	}

	Success(c, makeSampleSummary(sample))
}

func (h *HTTPHandler) CreateSample(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "需要登录")
		return
	}

	var req entity.SampleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	// 并发登记可能撞号，唯一索引兜底后重试取号
	var sample *entity.DbSample
	for attempt := 0; attempt < sampleNoCreateRetries; attempt++ {
		sampleNo, err := h.nextSampleNo(ctx)
		if err != nil {
			logrus.WithError(err).Error("failed to allocate sample number")
			InternalError(c, "登记样品失败")
			return
		}

		sample = &entity.DbSample{
			SampleNo:    sampleNo,
			Name:        strings.TrimSpace(req.Name),
			Type:        strings.TrimSpace(req.Type),
			Status:      entity.SampleStatusPending,
			SubmitterID: user.ID,
			Remark:      strings.TrimSpace(req.Remark),
		}

		err = h.repo.CreateSample(ctx, sample)
		if err == nil {
			Created(c, makeSampleSummary(sample))
			return
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			logrus.WithError(err).Error("failed to create sample")
			InternalError(c, "登记样品失败")
			return
		}
	}

	logrus.Error("exhausted sample number retries")
	InternalError(c, "登记样品失败")
}

// nextSampleNo 生成当日顺序编号，形如 S20260901-0001。
// 取当日已分配的最大编号递增，样品被删除后编号不回收。
func (h *HTTPHandler) nextSampleNo(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("S%s-", time.Now().UTC().Format("20060102"))
	last, err := h.repo.MaxSampleNoByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	seq := 0
	if last != "" {
		seq, err = strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("malformed sample number %q: %w", last, err)
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func (h *HTTPHandler) UpdateSample(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req entity.SampleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		InvalidPayload(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetSampleByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).Error("failed to load sample for update")
		InternalError(c, "修改样品失败")
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(c, ErrCodeInvalidRequest, "样品名称不能为空")
			return
		}
		updates["name"] = name
	}
	if req.Type != nil {
		updates["type"] = strings.TrimSpace(*req.Type)
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if !isValidSampleStatus(status) {
			BadRequest(c, ErrCodeInvalidRequest, "无效的样品状态")
			return
		}
		updates["status"] = status
	}
	if req.Remark != nil {
		updates["remark"] = strings.TrimSpace(*req.Remark)
	}

	if len(updates) > 0 {
		if err := h.repo.UpdateSample(ctx, id, updates); err != nil {
			logrus.WithError(err).WithField("sample_id", id).Error("failed to update sample")
			InternalError(c, "修改样品失败")
			return
		}
	}

	updated, err := h.repo.GetSampleByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload sample after update")
		InternalError(c, "加载样品失败")
		return
	}
	Success(c, makeSampleSummary(updated))
}

func (h *HTTPHandler) DeleteSample(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.DeleteSample(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).WithField("sample_id", id).Error("failed to delete sample")
		InternalError(c, "删除样品失败")
		return
	}

	NoContent(c)
}

// ReceiveSample 将待接收样品转为已接收并记录接收时间。
func (h *HTTPHandler) ReceiveSample(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	// 接收备注可省略，空请求体也合法
	var req entity.SampleReceiveRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			InvalidPayload(c)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	sample, err := h.repo.GetSampleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).Error("failed to load sample for receive")
		InternalError(c, "接收样品失败")
		return
	}

	if sample.Status != entity.SampleStatusPending {
		BadRequest(c, ErrCodeInvalidTransition, "只有待接收状态的样品可以接收")
		return
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      entity.SampleStatusReceived,
		"received_at": &now,
	}
	if remark := strings.TrimSpace(req.Remark); remark != "" {
		updates["remark"] = remark
	}

	if err := h.repo.UpdateSample(ctx, id, updates); err != nil {
		logrus.WithError(err).WithField("sample_id", id).Error("failed to receive sample")
		InternalError(c, "接收样品失败")
		return
	}

	updated, err := h.repo.GetSampleByID(ctx, id)
	if err != nil {
		logrus.WithError(err).Error("failed to reload sample after receive")
		InternalError(c, "加载样品失败")
		return
	}
	SuccessMessage(c, "样品已接收", makeSampleSummary(updated))
}

func isValidSampleStatus(status string) bool {
	switch status {
	case entity.SampleStatusPending, entity.SampleStatusReceived,
		entity.SampleStatusTesting, entity.SampleStatusCompleted:
		return true
	default:
		return false
	}
}

func makeSampleSummary(sample *entity.DbSample) entity.SampleSummary {
	if sample == nil {
		return entity.SampleSummary{}
	}
	return entity.SampleSummary{
		ID:          sample.ID,
		SampleNo:    sample.SampleNo,
		Name:        sample.Name,
		Type:        sample.Type,
		Status:      sample.Status,
		SubmitterID: sample.SubmitterID,
		ReceivedAt:  sample.ReceivedAt,
		Remark:      sample.Remark,
		CreatedAt:   sample.CreatedAt,
		UpdatedAt:   sample.UpdatedAt,
	}
}
