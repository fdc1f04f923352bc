package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"reportbot/pkg/models"
)

// Manager 配置管理器
type Manager struct {
	config     *models.AppConfig
	configPath string
	mu         sync.RWMutex
}

// NewManager 创建配置管理器
// 配置文件不存在或损坏时写入默认配置
func NewManager(configPath string) (*Manager, error) {
	m := &Manager{
		configPath: configPath,
	}

	if err := m.load(); err != nil {
		// 如果加载失败，使用默认配置
		m.config = models.DefaultConfig()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return m, nil
}

// load 加载配置
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config file not found")
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var config models.AppConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.config = &config
	return nil
}

// save 保存配置 (内部方法,不加锁)
// 密钥类字段带 json:"-" 标签，永远不会写入磁盘
func (m *Manager) save() error {
	// 确保目录存在
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Save 保存配置 (公共方法,加锁)
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.save()
}

// Get 获取配置（只读）
func (m *Manager) Get() *models.AppConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// 返回副本，避免外部修改
	configCopy := *m.config
	return &configCopy
}

// Update 更新配置
func (m *Manager) Update(updater func(*models.AppConfig)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	updater(m.config)
	return m.save() // 使用内部 save() 方法,避免重复加锁
}

// ApplyEnv 从环境变量读取密钥类配置，仅驻留内存不落盘
func (m *Manager) ApplyEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v := os.Getenv("AI_PROVIDER"); v != "" {
		m.config.AI.Provider = v
	}
	switch m.config.AI.Provider {
	case "anthropic":
		m.config.AI.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "deepseek":
		m.config.AI.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	default:
		m.config.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if v := os.Getenv("GMAIL_USER"); v != "" {
		m.config.Email.Username = v
	}
	if v := os.Getenv("GMAIL_APP_PASSWORD"); v != "" {
		m.config.Email.Password = v
	}
	if v := os.Getenv("REPORT_RECIPIENT"); v != "" {
		m.config.Email.Recipient = v
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		m.config.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		m.config.Telegram.ChatID = v
	}
}

// GetMonitor 获取活动监控配置
func (m *Manager) GetMonitor() models.MonitorConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Monitor
}

// GetScheduler 获取调度器配置
func (m *Manager) GetScheduler() models.SchedulerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Scheduler
}

// GetAI 获取 AI 配置
func (m *Manager) GetAI() models.AIConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.AI
}

// GetEmail 获取邮件投递配置
func (m *Manager) GetEmail() models.EmailConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Email
}

// GetTelegram 获取 Telegram 投递配置
func (m *Manager) GetTelegram() models.TelegramConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Telegram
}

// GetStorage 获取存储配置
func (m *Manager) GetStorage() models.StorageConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Storage
}

// GetServer 获取服务器配置
func (m *Manager) GetServer() models.ServerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Server
}
