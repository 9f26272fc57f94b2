package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	errGameRunning     = errors.New("game in progress")
	errBadWinnerPoints = errors.New("winnerPoints must be >= 1")
	errBadStartDelay   = errors.New("startDelayMs must be >= 0")
)

// AdminHandler 管理与监控接口
// GET  /healthz        存活探针
// GET  /metrics        运行指标
// GET  /admin/game     当前比赛快照
// GET  /admin/config   当前可调参数
// POST /admin/config   以 JSON 载荷更新部分字段（比赛进行中拒绝）
// POST /admin/reset    重置比赛到 Waiting 并清空积分
// GET  /ws             观战推送（WebSocket，JSON 快照）
func (s *Server) AdminHandler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", s.handleMetrics)
	r.GET("/admin/game", s.handleGame)
	r.GET("/admin/config", s.handleGetConfig)
	r.POST("/admin/config", s.handleSetConfig)
	r.POST("/admin/reset", s.handleReset)
	r.GET("/ws", s.handleSpectate)
	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("admin request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

func (s *Server) handleMetrics(c *gin.Context) {
	snap := s.snapshot.Load()
	c.JSON(http.StatusOK, gin.H{
		"server":  s.id,
		"tick":    snap.Tick,
		"metrics": s.metrics.Snapshot(),
	})
}

func (s *Server) handleGame(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshot.Load())
}

type configBody struct {
	WinnerPoints *int   `json:"winnerPoints,omitempty"`
	StartDelayMs *int64 `json:"startDelayMs,omitempty"`
}

func (s *Server) handleGetConfig(c *gin.Context) {
	snap := s.snapshot.Load()
	c.JSON(http.StatusOK, gin.H{
		"winnerPoints":   snap.WinnerPoints,
		"startDelayMs":   snap.StartDelayMs,
		"mapSize":        snap.MapSize,
		"maxPlayers":     s.cfg.MaxPlayers,
		"tickIntervalMs": s.cfg.TickInterval.Milliseconds(),
		"udpPort":        s.udpPort,
	})
}

func (s *Server) handleSetConfig(c *gin.Context) {
	var body configBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var delay *time.Duration
	if body.StartDelayMs != nil {
		d := time.Duration(*body.StartDelayMs) * time.Millisecond
		delay = &d
	}

	var err error
	if !s.exec(c.Request.Context().Done(), func() { err = s.applyConfig(body.WinnerPoints, delay) }) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
		return
	}
	switch {
	case errors.Is(err, errGameRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (s *Server) handleReset(c *gin.Context) {
	if !s.exec(c.Request.Context().Done(), s.resetGame) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
