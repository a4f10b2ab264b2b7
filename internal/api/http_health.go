package api

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Health 返回进程与数据库的运行状态，数据库不可用时返回 503。
func (h *HTTPHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), repoTimeout)
	defer cancel()

	if err := h.repo.Ping(ctx); err != nil {
		logrus.WithError(err).Error("database ping failed")
		ServiceUnavailable(c, "数据库不可用")
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	Success(c, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / 1024 / 1024,
		"database":       true,
		"storage_type":   h.cfg.StorageType,
	})
}
