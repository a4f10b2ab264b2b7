package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"lims/internal/auth"
	"lims/internal/config"
	"lims/internal/entity"
	"lims/internal/model"
	"lims/internal/permission"
	"lims/internal/storage"
)

// HTTPHandler HTTP 请求处理器
type HTTPHandler struct {
	cfg               config.Config
	repo              model.Repository
	storage           storage.Storage
	storagePublicBase string
	authManager       *auth.Manager
	perms             *permission.Registry
	startedAt         time.Time
}

// NewHTTPHandler 创建 HTTP 处理器实例
func NewHTTPHandler(cfg config.Config, repo model.Repository, store storage.Storage) (*HTTPHandler, error) {
	expiry := time.Duration(cfg.JWTExpirationMinutes) * time.Minute
	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, expiry)
	if err != nil {
		return nil, err
	}

	SetDevelopmentMode(cfg.IsDevelopment())

	return &HTTPHandler{
		cfg:               cfg,
		repo:              repo,
		storage:           store,
		storagePublicBase: normalisePublicBase(cfg.StoragePublicBaseURL),
		authManager:       authManager,
		perms:             permission.NewRegistry(),
		startedAt:         time.Now(),
	}, nil
}

// PermissionRegistry 暴露权限注册表，供路由注册和测试使用。
func (h *HTTPHandler) PermissionRegistry() *permission.Registry {
	return h.perms
}

// RegisterRoutes 注册全部业务路由。
//
// 权限代码在这里与路由一并声明，注册表不可能与实际路由漂移；
// 不带代码的路由是显式放开的（默认放行策略见 permission 包）。
func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.NoRoute(NotFoundHandler)

	r.GET("/health", h.Health)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)
	authGroup.PUT("/password", h.AuthMiddleware(), h.ChangePassword)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware(), h.RequirePermission())

	h.handle(protected, "GET", "/samples", "sample.list", h.ListSamples)
	h.handle(protected, "POST", "/samples", "sample.create", h.CreateSample)
	h.handle(protected, "GET", "/samples/:id", "sample.list", h.GetSample)
	h.handle(protected, "PUT", "/samples/:id", "sample.update", h.UpdateSample)
	h.handle(protected, "DELETE", "/samples/:id", "sample.delete", h.DeleteSample)
	h.handle(protected, "POST", "/samples/:id/receive", "sample.receive", h.ReceiveSample)
	h.handle(protected, "POST", "/samples/:id/attachments", "sample.upload", h.UploadAttachment)
	h.handle(protected, "GET", "/samples/:id/attachments", "sample.list", h.ListAttachments)

	admin := protected.Group("")
	admin.Use(h.RequireRoles(entity.RoleCodeAdmin))

	h.handle(admin, "GET", "/users", "user.list", h.ListUsers)
	h.handle(admin, "POST", "/users", "user.create", h.CreateUser)
	h.handle(admin, "GET", "/users/:id", "user.list", h.GetUser)
	h.handle(admin, "PUT", "/users/:id", "user.update", h.UpdateUser)
	h.handle(admin, "DELETE", "/users/:id", "user.delete", h.DisableUser)
	h.handle(admin, "POST", "/users/:id/reset-password", "user.reset_password", h.ResetUserPassword)
	h.handle(admin, "PUT", "/users/:id/roles", "user.assign_roles", h.AssignUserRoles)

	h.handle(admin, "GET", "/roles", "role.list", h.ListRoles)
	h.handle(admin, "POST", "/roles", "role.create", h.CreateRole)
	h.handle(admin, "PUT", "/roles/:id", "role.update", h.UpdateRole)
	h.handle(admin, "DELETE", "/roles/:id", "role.delete", h.DeleteRole)
	h.handle(admin, "PUT", "/roles/:id/permissions", "role.assign_permissions", h.AssignRolePermissions)
	h.handle(admin, "GET", "/permissions", "role.list", h.ListPermissions)
}

// handle 同时完成路由注册和权限代码关联。
func (h *HTTPHandler) handle(group *gin.RouterGroup, method, relativePath, permissionCode string, handler gin.HandlerFunc) {
	group.Handle(method, relativePath, handler)
	h.perms.Register(method, joinRoutePath(group.BasePath(), relativePath), permissionCode)
}

func joinRoutePath(base, relative string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(relative, "/") {
		relative = "/" + relative
	}
	return base + relative
}

// normalisePublicBase 规范化附件公共 URL 基础路径
func normalisePublicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}
