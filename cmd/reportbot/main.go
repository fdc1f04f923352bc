package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"reportbot/internal/ai"
	"reportbot/internal/config"
	"reportbot/internal/delivery"
	"reportbot/internal/monitor"
	"reportbot/internal/report"
	"reportbot/internal/scheduler"
	"reportbot/internal/server"
	"reportbot/internal/storage"
	"reportbot/internal/templates"
	"reportbot/pkg/activeapp"
	"reportbot/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	AppName    = "ReportBot"
	AppVersion = "1.2.0"
)

// systemProber 前台应用探测器，桥接到平台实现
type systemProber struct{}

func (systemProber) CurrentApp() (string, error) {
	return activeapp.CurrentApp()
}

// getDataDir 获取数据目录
// 优先使用 REPORTBOT_DATA 环境变量，否则使用工作目录下的 data
func getDataDir() string {
	if dir := os.Getenv("REPORTBOT_DATA"); dir != "" {
		return dir
	}

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("❌ 无法获取工作目录: %v", err)
	}
	return filepath.Join(workDir, "data")
}

// newStore 选择存储后端
// 设置 DATABASE_URL 时使用 PostgreSQL，否则使用本地 SQLite
func newStore(dataDir string) (storage.Store, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		fmt.Println("🐘 使用 PostgreSQL 存储")
		return storage.NewPostgresStore(context.Background(), dbURL)
	}

	fmt.Println("💾 使用本地 SQLite 存储")
	return storage.NewSQLiteStore(dataDir)
}

func main() {
	// 加载 .env 文件（不存在时忽略）
	_ = godotenv.Load()

	// 获取数据目录
	dataDir := getDataDir()
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("❌ 创建数据目录失败 %s: %v", dataDir, err)
	}

	// 初始化配置管理器
	configPath := filepath.Join(dataDir, "config.json")
	configMgr, err := config.NewManager(configPath)
	if err != nil {
		log.Fatalf("❌ 初始化配置管理器失败: %v", err)
	}
	// 密钥只从环境变量读取，不写入配置文件
	configMgr.ApplyEnv()
	fmt.Println("✅ 配置管理器初始化完成")

	// 初始化日志系统
	logsDir := filepath.Join(dataDir, "logs")
	if err := logger.Init(logsDir, false); err != nil {
		log.Printf("⚠️ 日志系统初始化失败: %v, 使用控制台输出", err)
	} else {
		fmt.Println("✅ 日志系统初始化完成")
		logger.Info("==================== %s %s 启动 ====================", AppName, AppVersion)
		logger.Info("数据目录: %s", dataDir)
	}

	// 初始化存储
	store, err := newStore(dataDir)
	if err != nil {
		log.Fatalf("❌ 初始化存储失败: %v", err)
	}
	fmt.Println("✅ 存储初始化完成")

	// 初始化模板库
	templateLib, err := templates.NewStore(dataDir)
	if err != nil {
		log.Fatalf("❌ 初始化模板库失败: %v", err)
	}
	fmt.Println("✅ 模板库初始化完成")

	// 初始化活动监控引擎
	monitorCfg := configMgr.GetMonitor()
	monitorEng := monitor.NewEngine(store, systemProber{}, monitorCfg.MinInterval)
	fmt.Println("✅ 活动监控引擎初始化完成")

	// 初始化 AI 报告生成器
	generator := ai.NewGenerator(configMgr)
	fmt.Println("✅ AI 报告生成器初始化完成")

	// 按配置组装投递目标，缺少凭据的目标跳过
	var sinks []delivery.Sink
	if emailCfg := configMgr.GetEmail(); emailCfg.Configured() {
		emailSink, err := delivery.NewEmailSink(emailCfg)
		if err != nil {
			log.Printf("⚠️ 邮件投递初始化失败: %v", err)
		} else {
			sinks = append(sinks, emailSink)
			fmt.Println("✅ 邮件投递已启用")
		}
	}
	if tgCfg := configMgr.GetTelegram(); tgCfg.Configured() {
		tgSink, err := delivery.NewTelegramSink(tgCfg)
		if err != nil {
			log.Printf("⚠️ Telegram 投递初始化失败: %v", err)
		} else {
			sinks = append(sinks, tgSink)
			fmt.Println("✅ Telegram 投递已启用")
		}
	}
	if len(sinks) == 0 {
		fmt.Println("⚠️ 未配置任何投递目标,定时报告只生成不投递")
	}

	// 初始化报告分发器
	dispatcher := report.NewDispatcher(store, templateLib, generator, sinks)
	fmt.Println("✅ 报告分发器初始化完成")

	// 启动任务调度器
	sched := scheduler.NewScheduler(store, dispatcher)
	schedulerCfg := configMgr.GetScheduler()
	if err := sched.Start(schedulerCfg.TickSeconds); err != nil {
		log.Fatalf("❌ 启动任务调度器失败: %v", err)
	}

	// 初始化 Web 服务器
	webServer := server.NewServer(configMgr, store, monitorEng, dispatcher, templateLib, AppVersion)

	// 启动 Web 服务器（在独立 goroutine 中）
	go func() {
		if err := webServer.Start(); err != nil {
			log.Fatalf("❌ Web 服务器错误: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 清理资源
	fmt.Println("\n📦 正在清理资源...")
	webServer.Shutdown()
	sched.Stop()
	if monitorEng.IsRunning() {
		monitorEng.Stop()
	}
	if err := store.Close(); err != nil {
		log.Printf("⚠️ 关闭存储失败: %v", err)
	}
	logger.Info("==================== %s 退出 ====================", AppName)
	logger.Close()
	fmt.Println("✅ 资源清理完成")
}
