package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"sync-service/backend/internal/syncservice"
)

// SyncService handler 只依赖这两个方法，测试里可以替换
type SyncService interface {
	Push(ctx context.Context, userID uint64, req syncservice.PushRequest) (syncservice.PushResult, error)
	Pull(ctx context.Context, userID uint64, req syncservice.PullRequest) (*syncservice.PullResponse, error)
}

type SyncHandler struct {
	svc SyncService
}

func NewSyncHandler(svc SyncService) *SyncHandler {
	return &SyncHandler{svc: svc}
}

func userIDFrom(c *gin.Context) (uint64, bool) {
	v, ok := c.Get("userId")
	if !ok {
		return 0, false
	}
	userID, ok := v.(uint64)
	return userID, ok && userID != 0
}

func (h *SyncHandler) Push() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			writeError(c, syncservice.ErrUnauthorized)
			return
		}
		var req syncservice.PushRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		res, err := h.svc.Push(c.Request.Context(), userID, req)
		if err != nil {
			writeError(c, err)
			return
		}
		if res.Skipped > 0 {
			log.Printf("push: user=%d group=%s applied=%d skipped=%d version=%d",
				userID, req.ClientGroupID, res.Applied, res.Skipped, res.Version)
		}
		c.JSON(http.StatusOK, gin.H{})
	}
}

func (h *SyncHandler) Pull() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := userIDFrom(c)
		if !ok {
			writeError(c, syncservice.ErrUnauthorized)
			return
		}
		var req syncservice.PullRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		resp, err := h.svc.Pull(c.Request.Context(), userID, req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func writeBindError(c *gin.Context, err error) {
	if errors.Is(err, syncservice.ErrUnknownMutation) {
		writeError(c, err)
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": err.Error()})
}

// writeError 把 syncservice 的错误映射成 HTTP 状态码
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "STORAGE_ERROR"
	switch {
	case errors.Is(err, syncservice.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, syncservice.ErrUnknownMutation):
		status, code = http.StatusBadRequest, "UNKNOWN_MUTATION"
	case errors.Is(err, syncservice.ErrMalformedArguments):
		status, code = http.StatusBadRequest, "MALFORMED_ARGUMENTS"
	case errors.Is(err, syncservice.ErrTenantStoreNotFound):
		status, code = http.StatusNotFound, "TENANT_STORE_NOT_FOUND"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		// 不把底层 SQL 错误暴露给客户端
		log.Printf("sync request failed: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		msg = "storage error, retry later"
	}
	c.AbortWithStatusJSON(status, gin.H{"code": code, "message": msg})
}

// Healthz 只说明进程活着
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
