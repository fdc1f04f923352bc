package models

// AppConfig 应用程序配置
type AppConfig struct {
	// 活动监控配置
	Monitor MonitorConfig `json:"monitor"`

	// 调度器配置
	Scheduler SchedulerConfig `json:"scheduler"`

	// AI 配置
	AI AIConfig `json:"ai"`

	// 邮件投递配置
	Email EmailConfig `json:"email"`

	// Telegram 投递配置
	Telegram TelegramConfig `json:"telegram"`

	// 存储配置
	Storage StorageConfig `json:"storage"`

	// 服务器配置
	Server ServerConfig `json:"server"`
}

// MonitorConfig 活动监控配置
type MonitorConfig struct {
	DefaultInterval int `json:"default_interval"` // 默认采样间隔（秒）
	MinInterval     int `json:"min_interval"`     // 最小采样间隔（秒），防止资源占用过高
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	TickSeconds int `json:"tick_seconds"` // 调度评估周期（秒），需小于 60 保证分钟级命中
}

// AIConfig AI 配置
type AIConfig struct {
	Provider    string  `json:"provider"`    // openai, anthropic, deepseek
	APIKey      string  `json:"-"`           // API 密钥（仅从环境变量读取，不落盘）
	Model       string  `json:"model"`       // 模型名称
	BaseURL     string  `json:"base_url"`    // 自定义 API 端点
	MaxTokens   int     `json:"max_tokens"`  // 最大 token 数
	Temperature float32 `json:"temperature"` // 温度参数
}

// EmailConfig 邮件投递配置
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"` // SMTP 服务器地址
	SMTPPort  int    `json:"smtp_port"` // SMTP 端口（587 STARTTLS）
	Username  string `json:"username"`  // 发件账号
	Password  string `json:"-"`         // 应用密码（仅从环境变量读取）
	Recipient string `json:"recipient"` // 收件人
}

// Configured 检查邮件投递是否已配置
func (c EmailConfig) Configured() bool {
	return c.Username != "" && c.Password != "" && c.Recipient != ""
}

// TelegramConfig Telegram 投递配置
type TelegramConfig struct {
	BotToken string `json:"-"`       // Bot Token（仅从环境变量读取）
	ChatID   string `json:"chat_id"` // 目标会话 ID
}

// Configured 检查 Telegram 投递是否已配置
func (c TelegramConfig) Configured() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// StorageConfig 存储配置
type StorageConfig struct {
	DataDir string `json:"data_dir"` // 数据目录（数据库、上传文件、日志）
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host       string `json:"host"`        // 主机地址
	Port       int    `json:"port"`        // 端口号
	EnableCORS bool   `json:"enable_cors"` // 是否启用 CORS
}

// DefaultConfig 返回默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Monitor: MonitorConfig{
			DefaultInterval: 5,
			MinInterval:     1,
		},
		Scheduler: SchedulerConfig{
			TickSeconds: 30,
		},
		AI: AIConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			MaxTokens:   1500,
			Temperature: 0.7,
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8000,
			EnableCORS: true,
		},
	}
}
