package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/brandinglab/backend/internal/interfaces/http/dto"
)

// SystemHandler handles health and system information endpoints.
type SystemHandler struct {
	BaseHandler
	db        *gorm.DB
	redis     *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(db *gorm.DB, redisClient *redis.Client) *SystemHandler {
	return &SystemHandler{
		db:        db,
		redis:     redisClient,
		startTime: time.Now(),
	}
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status    string            `json:"status"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks"`
}

// Health reports liveness of the service and its dependencies.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{}
	healthy := true

	if h.db != nil {
		status := "ok"
		if sqlDB, err := h.db.DB(); err != nil {
			status, healthy = err.Error(), false
		} else if err := sqlDB.PingContext(ctx); err != nil {
			status, healthy = err.Error(), false
		}
		checks["database"] = status
	}
	if h.redis != nil {
		status := "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status, healthy = err.Error(), false
		}
		checks["redis"] = status
	}

	response := HealthResponse{
		Status:    "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
	if !healthy {
		response.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(response))
		return
	}
	h.Success(c, response)
}

// RegisterRoutes registers the system routes.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.Health)
}
