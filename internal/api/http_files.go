package api

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/entity"
	"lims/internal/storage"
)

// maxAttachmentSize 限制单个附件大小为 20MB。
const maxAttachmentSize = 20 << 20

// UploadAttachment 接收 multipart 文件并挂到指定样品上。
func (h *HTTPHandler) UploadAttachment(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		Unauthorized(c, "需要登录")
		return
	}

	sampleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetSampleByID(ctx, sampleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).Error("failed to load sample for upload")
		InternalError(c, "上传附件失败")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, ErrCodeInvalidRequest, "缺少上传文件")
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		BadRequest(c, ErrCodeInvalidRequest, "附件大小超出限制")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logrus.WithError(err).Error("failed to open uploaded file")
		InternalError(c, "上传附件失败")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		logrus.WithError(err).Error("failed to read uploaded file")
		InternalError(c, "上传附件失败")
		return
	}
	if int64(len(data)) > maxAttachmentSize {
		BadRequest(c, ErrCodeInvalidRequest, "附件大小超出限制")
		return
	}

	fileName := filepath.Base(fileHeader.Filename)
	ext := strings.TrimPrefix(filepath.Ext(fileName), ".")

	objectKey, err := h.storage.Save(c.Request.Context(), data, storage.SaveOptions{
		Category:  "samples",
		BaseName:  strings.TrimSuffix(fileName, filepath.Ext(fileName)),
		Extension: ext,
	})
	if err != nil {
		logrus.WithError(err).WithField("sample_id", sampleID).Error("failed to store attachment")
		InternalError(c, "上传附件失败")
		return
	}

	attachment := &entity.DbAttachment{
		SampleID:    sampleID,
		ObjectKey:   objectKey,
		FileName:    fileName,
		Size:        int64(len(data)),
		ContentType: fileHeader.Header.Get("Content-Type"),
		UploaderID:  user.ID,
	}
	if err := h.repo.CreateAttachment(ctx, attachment); err != nil {
		logrus.WithError(err).Error("failed to record attachment")
		InternalError(c, "上传附件失败")
		return
	}

	Created(c, h.makeAttachmentSummary(attachment))
}

// ListAttachments 列出样品下的全部附件。
func (h *HTTPHandler) ListAttachments(c *gin.Context) {
	sampleID, ok := parseIDParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if _, err := h.repo.GetSampleByID(ctx, sampleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, ErrCodeSampleNotFound, "样品不存在")
			return
		}
		logrus.WithError(err).Error("failed to load sample for attachments")
		InternalError(c, "加载附件失败")
		return
	}

	attachments, err := h.repo.ListAttachmentsBySample(ctx, sampleID)
	if err != nil {
		logrus.WithError(err).WithField("sample_id", sampleID).Error("failed to list attachments")
		InternalError(c, "加载附件失败")
		return
	}

	summaries := make([]entity.AttachmentSummary, 0, len(attachments))
	for idx := range attachments {
		summaries = append(summaries, h.makeAttachmentSummary(&attachments[idx]))
	}
	Success(c, summaries)
}

func (h *HTTPHandler) makeAttachmentSummary(attachment *entity.DbAttachment) entity.AttachmentSummary {
	return entity.AttachmentSummary{
		ID:          attachment.ID,
		FileName:    attachment.FileName,
		Size:        attachment.Size,
		ContentType: attachment.ContentType,
		URL:         h.publicURL(attachment.ObjectKey),
		CreatedAt:   attachment.CreatedAt,
	}
}

// publicURL 把存储对象键拼成客户端可访问的地址。
func (h *HTTPHandler) publicURL(objectKey string) string {
	if objectKey == "" {
		return ""
	}
	if strings.HasPrefix(objectKey, "http://") || strings.HasPrefix(objectKey, "https://") {
		return objectKey
	}
	base := strings.TrimRight(h.storagePublicBase, "/")
	return base + "/" + strings.TrimLeft(objectKey, "/")
}
