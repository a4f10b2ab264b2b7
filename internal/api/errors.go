package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/auth"
	"lims/internal/entity"
)

// 错误码定义
const (
	// 通用错误码
	ErrCodeInvalidRequest     = "ERR_INVALID_REQUEST"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeNotFound           = "ERR_NOT_FOUND"
	ErrCodeConflict           = "ERR_CONFLICT"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeInternalError      = "ERR_INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"

	// 认证错误码
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	ErrCodeUserDisabled       = "ERR_USER_DISABLED"
	ErrCodeSessionExpired     = "ERR_SESSION_EXPIRED"
	ErrCodeUserNotFound       = "ERR_USER_NOT_FOUND"

	// 资源错误码
	ErrCodeRoleNotFound      = "ERR_ROLE_NOT_FOUND"
	ErrCodeSampleNotFound    = "ERR_SAMPLE_NOT_FOUND"
	ErrCodeDuplicateRecord   = "ERR_DUPLICATE_RECORD"
	ErrCodeInvalidTransition = "ERR_INVALID_TRANSITION"
)

// developmentMode 仅在启动阶段写入一次，之后对并发请求只读。
var developmentMode atomic.Bool

// SetDevelopmentMode 控制错误响应是否携带堆栈等内部细节。
func SetDevelopmentMode(enabled bool) {
	developmentMode.Store(enabled)
}

// ErrorResponse 返回统一格式的错误响应
func ErrorResponse(c *gin.Context, status int, code string, message string) {
	c.JSON(status, entity.Response{
		Success:   false,
		Message:   message,
		Error:     &entity.ErrorDetail{Code: code},
		Timestamp: time.Now().UTC(),
	})
}

// ErrorResponseWithDetails 返回带详情的错误响应
func ErrorResponseWithDetails(c *gin.Context, status int, code string, message string, details interface{}) {
	c.JSON(status, entity.Response{
		Success:   false,
		Message:   message,
		Error:     &entity.ErrorDetail{Code: code, Details: details},
		Timestamp: time.Now().UTC(),
	})
}

// 常用错误响应快捷函数

// BadRequest 400 错误请求
func BadRequest(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401 未授权
func Unauthorized(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// Forbidden 403 禁止访问
func Forbidden(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusForbidden, ErrCodeForbidden, message)
}

// NotFound 404 资源不存在
func NotFound(c *gin.Context, code string, message string) {
	ErrorResponse(c, http.StatusNotFound, code, message)
}

// Conflict 409 数据冲突
func Conflict(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, ErrCodeConflict, message)
}

// ValidationError 422 字段校验失败，message 为全部违反规则的拼接。
func ValidationError(c *gin.Context, errs []string) {
	ErrorResponseWithDetails(c, http.StatusUnprocessableEntity, ErrCodeValidation,
		strings.Join(errs, "；"), errs)
}

// InternalError 500 服务器内部错误
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// ServiceUnavailable 503 服务不可用
func ServiceUnavailable(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InvalidPayload 无效的请求体
func InvalidPayload(c *gin.Context) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeInvalidRequest, "无效的请求体")
}

// RespondError 把底层错误翻译为统一的错误响应。
//
// 生产环境下 500 响应只返回通用消息，完整错误仅写日志；
// 开发环境下把错误和堆栈原样返回。
func RespondError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, ErrCodeNotFound, "记录不存在")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		ErrorResponse(c, http.StatusConflict, ErrCodeDuplicateRecord, "记录已存在，唯一字段冲突")
	case auth.IsTokenExpired(err):
		ErrorResponse(c, http.StatusUnauthorized, ErrCodeSessionExpired, "Token 已过期，请重新登录")
	default:
		logrus.WithError(err).Error("request failed")
		if developmentMode.Load() {
			c.JSON(http.StatusInternalServerError, entity.Response{
				Success: false,
				Message: err.Error(),
				Error: &entity.ErrorDetail{
					Code:  ErrCodeInternalError,
					Stack: string(debug.Stack()),
				},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		InternalError(c, "服务器内部错误")
	}
}

// RecoveryMiddleware 捕获 handler panic 并转换为统一的 500 响应。
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				stack := string(debug.Stack())
				logrus.WithFields(logrus.Fields{
					"panic": recovered,
					"path":  c.Request.URL.Path,
				}).Error(stack)

				response := entity.Response{
					Success:   false,
					Message:   "服务器内部错误",
					Error:     &entity.ErrorDetail{Code: ErrCodeInternalError},
					Timestamp: time.Now().UTC(),
				}
				if developmentMode.Load() {
					response.Error.Details = fmt.Sprint(recovered)
					response.Error.Stack = stack
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, response)
			}
		}()
		c.Next()
	}
}

// NotFoundHandler 统一处理未匹配的路由。
func NotFoundHandler(c *gin.Context) {
	NotFound(c, ErrCodeNotFound, "路由不存在")
}
