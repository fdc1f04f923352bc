package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"reportbot/internal/config"
	"reportbot/internal/monitor"
	"reportbot/internal/report"
	"reportbot/internal/storage"
	"reportbot/internal/templates"
	"reportbot/pkg/models"

	"github.com/gin-gonic/gin"
)

// Server Web 服务器
// 仅做请求转译与状态码映射，业务规则全部在下层组件
type Server struct {
	router      *gin.Engine
	configMgr   *config.Manager
	store       storage.Store
	monitorEng  *monitor.Engine
	dispatcher  *report.Dispatcher
	templateLib *templates.Store
	addr        string
	version     string
	httpServer  *http.Server
}

// NewServer 创建 Web 服务器
func NewServer(
	configMgr *config.Manager,
	store storage.Store,
	monitorEng *monitor.Engine,
	dispatcher *report.Dispatcher,
	templateLib *templates.Store,
	version string,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	serverCfg := configMgr.GetServer()
	addr := fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)

	s := &Server{
		router:      router,
		configMgr:   configMgr,
		store:       store,
		monitorEng:  monitorEng,
		dispatcher:  dispatcher,
		templateLib: templateLib,
		addr:        addr,
		version:     version,
	}

	if serverCfg.EnableCORS {
		router.Use(corsMiddleware())
	}

	s.setupRoutes()
	return s
}

// corsMiddleware 跨域中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	// API 路由组
	api := s.router.Group("/api")
	{
		// 系统信息
		api.GET("/version", s.handleGetVersion)

		// 活动监控
		api.POST("/activity/start", s.handleStartMonitoring)
		api.POST("/activity/stop", s.handleStopMonitoring)
		api.GET("/activity/status", s.handleActivityStatus)
		api.GET("/activity/summary", s.handleActivitySummary)

		// 报告生成
		api.POST("/generate/report", s.handleGenerateReport)

		// 定时任务
		api.GET("/schedules", s.handleListSchedules)
		api.POST("/schedules", s.handleCreateSchedule)
		api.DELETE("/schedules/:id", s.handleDeleteSchedule)
		api.PATCH("/schedules/:id/toggle", s.handleToggleSchedule)

		// 报告模板
		api.GET("/templates", s.handleListTemplates)
		api.POST("/reports/upload", s.handleUploadTemplate)
		api.DELETE("/reports/templates/:name", s.handleDeleteTemplate)
	}
}

// Router 返回底层路由（测试用）
func (s *Server) Router() http.Handler {
	return s.router
}

// Start 启动服务器
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	fmt.Printf("🌐 Web服务器启动: http://%s\n", s.addr)

	// 启动服务器（会阻塞）
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown 优雅关闭服务器
func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}

	fmt.Println("🛑 正在关闭 Web 服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		fmt.Printf("⚠️ 服务器关闭错误: %v\n", err)
		return err
	}

	fmt.Println("✅ Web 服务器已关闭")
	return nil
}

// ===== 处理函数 =====

// handleHealth 健康检查
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleGetVersion 获取版本信息
func (s *Server) handleGetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.version,
		"name":    "ReportBot AI",
	})
}

// handleStartMonitoring 启动活动监控
func (s *Server) handleStartMonitoring(c *gin.Context) {
	var req struct {
		IntervalSeconds int `json:"interval_seconds"`
	}
	// 请求体可省略，此时使用配置的默认间隔
	_ = c.ShouldBindJSON(&req)

	if req.IntervalSeconds <= 0 {
		req.IntervalSeconds = s.configMgr.GetMonitor().DefaultInterval
	}

	if err := s.monitorEng.Start(req.IntervalSeconds); err != nil {
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "监控已在运行中"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"started":          true,
		"interval_seconds": req.IntervalSeconds,
	})
}

// handleStopMonitoring 停止活动监控
func (s *Server) handleStopMonitoring(c *gin.Context) {
	if err := s.monitorEng.Stop(); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "监控未在运行"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stopped": true})
}

// handleActivityStatus 获取监控状态及当日摘要
func (s *Server) handleActivityStatus(c *gin.Context) {
	status := s.monitorEng.Status()

	summary, err := s.monitorEng.TodaySummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"is_running":            status.IsRunning,
		"poll_interval_seconds": status.PollIntervalSeconds,
		"started_at":            status.StartedAt,
		"summary":               summary,
	})
}

// handleActivitySummary 获取当日活动摘要
func (s *Server) handleActivitySummary(c *gin.Context) {
	summary, err := s.monitorEng.TodaySummary()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleGenerateReport 按需生成报告
// 生成调用不设内部超时，客户端断开时通过请求上下文取消
func (s *Server) handleGenerateReport(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dispatcher.Generate(c.Request.Context(), &req)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleListSchedules 获取定时任务列表
func (s *Server) handleListSchedules(c *gin.Context) {
	schedules, err := s.store.ListSchedules()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if schedules == nil {
		schedules = []*models.Schedule{}
	}
	c.JSON(http.StatusOK, schedules)
}

// handleCreateSchedule 创建定时任务
func (s *Server) handleCreateSchedule(c *gin.Context) {
	var in models.ScheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sched, err := s.store.CreateSchedule(&in)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sched)
}

// parseScheduleID 解析路径中的任务 id
func parseScheduleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的任务 id"})
		return 0, false
	}
	return id, true
}

// handleDeleteSchedule 删除定时任务
func (s *Server) handleDeleteSchedule(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}

	if err := s.store.DeleteSchedule(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// handleToggleSchedule 翻转定时任务激活状态
func (s *Server) handleToggleSchedule(c *gin.Context) {
	id, ok := parseScheduleID(c)
	if !ok {
		return
	}

	sched, err := s.store.ToggleSchedule(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sched)
}

// handleListTemplates 获取模板列表
func (s *Server) handleListTemplates(c *gin.Context) {
	infos, err := s.templateLib.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": infos,
		"count":     len(infos),
	})
}

// handleUploadTemplate 上传报告模板
func (s *Server) handleUploadTemplate(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	uploaded, err := s.templateLib.SaveUpload(fileHeader.Filename, f)
	if err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": vErr.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, uploaded)
}

// handleDeleteTemplate 删除报告模板
func (s *Server) handleDeleteTemplate(c *gin.Context) {
	name := c.Param("name")

	if err := s.templateLib.Delete(name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "模板不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "name": name})
}
