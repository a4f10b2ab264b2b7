package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lims/internal/entity"
	"lims/internal/permission"
)

const (
	currentUserContextKey = "current-user"

	repoTimeout = 5 * time.Second
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID          uint
	Username    string
	Email       string
	DisplayName string
	Roles       []string
	Permissions []string
}

// HasRole 判断用户是否持有指定角色。
func (u *RequestUser) HasRole(code string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if role == code {
			return true
		}
	}
	return false
}

// HasPermission 判断用户权限集是否包含指定代码。
func (u *RequestUser) HasPermission(code string) bool {
	if u == nil {
		return false
	}
	return permission.Has(u.Permissions, code)
}

// AuthMiddleware JWT 认证中间件
//
// 阶段依次为：提取 Bearer Token → 验证签名和有效期 → 从数据库加载最新的
// 角色和权限集 → 账户状态检查 → 挂到请求上下文。角色变更在下一个请求即生
// 效，不受 Token 生命周期影响。
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			abortUnauthorized(c, ErrCodeUnauthorized, "缺少授权头")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, ErrCodeUnauthorized, "无效的授权头格式")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c, ErrCodeUnauthorized, "缺少 Bearer Token")
			return
		}

		claims, err := h.authManager.ParseToken(tokenString)
		if err != nil {
			logrus.WithError(err).Warn("failed to parse jwt token")
			abortUnauthorized(c, ErrCodeSessionExpired, "Token 无效或已过期")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
		defer cancel()

		user, err := h.repo.GetUserByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortUnauthorized(c, ErrCodeUserNotFound, "用户不存在")
				return
			}
			logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
			c.AbortWithStatusJSON(http.StatusInternalServerError, entity.Response{
				Success:   false,
				Message:   "验证用户失败",
				Error:     &entity.ErrorDetail{Code: ErrCodeInternalError},
				Timestamp: time.Now().UTC(),
			})
			return
		}

		if !user.IsActive() {
			abortUnauthorized(c, ErrCodeUserDisabled, "账户已被禁用")
			return
		}

		c.Set(currentUserContextKey, &RequestUser{
			ID:          user.ID,
			Username:    user.Username,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Roles:       user.RoleCodes(),
			Permissions: user.PermissionCodes(),
		})
		c.Next()
	}
}

// RequireRoles 角色守卫中间件，调用者角色集与允许列表必须有交集。
func (h *HTTPHandler) RequireRoles(codes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, ErrCodeUnauthorized, "需要登录")
			return
		}
		for _, code := range codes {
			if user.HasRole(code) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, entity.Response{
			Success:   false,
			Message:   "没有访问权限",
			Error:     &entity.ErrorDetail{Code: ErrCodeForbidden},
			Timestamp: time.Now().UTC(),
		})
	}
}

// RequirePermission 细粒度权限守卫，按请求方法和路径查注册表。
// 未注册映射的路由放行（默认放行策略见 permission 包）。
func (h *HTTPHandler) RequirePermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, ErrCodeUnauthorized, "需要登录")
			return
		}
		if !h.perms.Allowed(user.Permissions, c.Request.Method, c.Request.URL.Path) {
			code, _ := h.perms.Required(c.Request.Method, c.Request.URL.Path)
			logrus.WithFields(logrus.Fields{
				"user_id":    user.ID,
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"permission": code,
			}).Warn("permission denied")
			c.AbortWithStatusJSON(http.StatusForbidden, entity.Response{
				Success:   false,
				Message:   "没有操作权限",
				Error:     &entity.ErrorDetail{Code: ErrCodeForbidden},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, entity.Response{
		Success:   false,
		Message:   message,
		Error:     &entity.ErrorDetail{Code: code},
		Timestamp: time.Now().UTC(),
	})
}
