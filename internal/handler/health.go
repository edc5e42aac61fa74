package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"confeed/internal/client/cms"
)

// UpstreamStatus holds the most recent CMS reachability result,
// written by the periodic probe and read by the readiness endpoint.
type UpstreamStatus struct {
	mu      sync.RWMutex
	checked bool
	ok      bool
	message string
}

func (s *UpstreamStatus) Set(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checked = true
	s.ok = err == nil
	s.message = ""
	if err != nil {
		s.message = err.Error()
	}
}

func (s *UpstreamStatus) Snapshot() (checked, ok bool, message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checked, s.ok, s.message
}

type HealthHandler struct {
	CMS    *cms.Client
	Status *UpstreamStatus
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) ready(c *gin.Context) {
	if h.Status != nil {
		if checked, ok, _ := h.Status.Snapshot(); checked {
			if ok {
				c.JSON(http.StatusOK, gin.H{"status": "ready"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cms_unreachable"})
			return
		}
	}
	// No probe result yet; check the CMS directly.
	if h.CMS == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cms_missing"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.CMS.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "cms_unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
