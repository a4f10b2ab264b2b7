package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lims/internal/entity"
)

// Success 返回 200 成功响应。
func Success(c *gin.Context, data interface{}) {
	SuccessMessage(c, "操作成功", data)
}

// SuccessMessage 返回带自定义消息的成功响应。
func SuccessMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, entity.Response{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Created 返回 201 创建成功响应。
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, entity.Response{
		Success:   true,
		Message:   "创建成功",
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// NoContent 返回 204。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated 返回带分页元数据的成功响应。
func Paginated(c *gin.Context, data interface{}, pagination *entity.Pagination) {
	c.JSON(http.StatusOK, entity.ResponseItems{
		Success:    true,
		Message:    "操作成功",
		Data:       data,
		Pagination: pagination,
		Timestamp:  time.Now().UTC(),
	})
}
