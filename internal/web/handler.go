package web

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/apps"
	"github.com/hotstart/hotstart/internal/database"
	"github.com/hotstart/hotstart/internal/metrics"
	"github.com/hotstart/hotstart/internal/monitor"
	"github.com/hotstart/hotstart/internal/preload"
	"github.com/hotstart/hotstart/internal/reporter"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

type Handler struct {
	ctx      context.Context
	monitor  *monitor.Service
	repo     *database.Repository
	reporter *reporter.Reporter
	metrics  *metrics.Metrics
	logger   *zap.Logger
	started  time.Time
}

func NewHandler(ctx context.Context, mon *monitor.Service, repo *database.Repository, m *metrics.Metrics, logger *zap.Logger) *Handler {
	h := &Handler{
		ctx:     ctx,
		monitor: mon,
		repo:    repo,
		metrics: m,
		logger:  logger,
		started: time.Now(),
	}
	if repo != nil {
		h.reporter = reporter.New(repo)
	}
	return h
}

func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.handleHealth)

	api := router.Group("/api")
	api.GET("/status", h.handleStatus)
	api.GET("/apps", h.handleApps)
	api.POST("/apps/:name/activate", h.handleActivate)
	api.POST("/apps/:name/hide", h.handleHide)
	api.POST("/show-all", h.handleShowAll)
	api.POST("/pause", h.handlePause)
	api.POST("/resume", h.handleResume)
	api.POST("/reconcile", h.handleReconcile)
	api.GET("/events", h.handleEvents)
	api.GET("/report", h.handleReport)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now(),
	})
}

func (h *Handler) handleStatus(c *gin.Context) {
	records := h.monitor.Records()
	captured := 0
	for _, r := range records {
		if r.Captured() {
			captured++
		}
	}

	ctrl := h.monitor.Controller()
	c.JSON(http.StatusOK, gin.H{
		"pid":       os.Getpid(),
		"backend":   ctrl.Backend(),
		"running":   h.monitor.IsRunning(),
		"paused":    h.monitor.Paused(),
		"in_flight": ctrl.InFlight(),
		"apps":      len(records),
		"captured":  captured,
		"history":   h.repo != nil,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) handleApps(c *gin.Context) {
	records := h.monitor.Records()
	out := make([]preload.Snapshot, 0, len(records))
	for _, r := range records {
		out = append(out, r.Snapshot())
	}
	c.JSON(http.StatusOK, out)
}

// lookup writes a 404 with suggestions when the app is unknown
func (h *Handler) lookup(c *gin.Context) (*preload.Record, bool) {
	records := h.monitor.Records()
	name := c.Param("name")

	r, err := apps.Find(records, name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":       err.Error(),
			"suggestions": apps.Suggest(records, name),
		})
		return nil, false
	}
	return r, true
}

type activateRequest struct {
	Args []string `json:"args"`
}

func (h *Handler) handleActivate(c *gin.Context) {
	r, ok := h.lookup(c)
	if !ok {
		return
	}

	var req activateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := h.monitor.Controller().Activate(c.Request.Context(), r, req.Args)
	if err != nil {
		h.logger.Warn("Activation failed", zap.String("app", r.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"app":      r.Name,
		"shown":    res.Shown.IsValid(),
		"handle":   res.Shown,
		"launched": res.Launched,
		"pid":      res.PID,
	})
}

func (h *Handler) handleHide(c *gin.Context) {
	r, ok := h.lookup(c)
	if !ok {
		return
	}

	if !r.Captured() {
		c.JSON(http.StatusConflict, gin.H{"error": "no hot instance to hide"})
		return
	}

	if err := h.monitor.Controller().Hide(r); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleShowAll(c *gin.Context) {
	h.monitor.Controller().ShowAll(h.monitor.Records())
	c.Status(http.StatusNoContent)
}

func (h *Handler) handlePause(c *gin.Context) {
	h.monitor.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *Handler) handleResume(c *gin.Context) {
	h.monitor.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (h *Handler) handleReconcile(c *gin.Context) {
	if !h.monitor.Trigger(h.ctx) {
		c.JSON(http.StatusConflict, gin.H{"error": "a reconciliation pass is already running"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

func (h *Handler) handleEvents(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	limit := defaultEventLimit
	if s := c.Query("limit"); s != "" {
		l, err := strconv.Atoi(s)
		if err != nil || l <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(l, maxEventLimit)
	}

	events, err := h.repo.GetRecent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errors.Wrap(err, "failed to fetch events").Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) handleReport(c *gin.Context) {
	if h.reporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is disabled"})
		return
	}

	period := c.DefaultQuery("period", "day")
	if _, err := reporter.GetPeriod(period, time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reporter.GenerateReport(period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
