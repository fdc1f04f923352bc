package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reportbot/internal/config"
	"reportbot/pkg/logger"
	"reportbot/pkg/models"
)

// Generator AI 报告生成器
type Generator struct {
	configMgr *config.Manager
	client    *http.Client
}

// NewGenerator 创建 AI 报告生成器
// 客户端不设置超时：生成调用可能很慢，取消与超时由调用方通过 ctx 控制
func NewGenerator(configMgr *config.Manager) *Generator {
	return &Generator{
		configMgr: configMgr,
		client:    &http.Client{},
	}
}

// Generate 生成报告文本
// templatesText 为空时不附带模板段落，生成仍正常进行
func (g *Generator) Generate(
	ctx context.Context,
	req *models.GenerationRequest,
	summary models.ActivitySummary,
	templatesText string,
) (string, error) {
	cfg := g.configMgr.GetAI()
	if cfg.APIKey == "" {
		return "", fmt.Errorf("AI API key not configured")
	}

	prompt := BuildPrompt(req, summary, templatesText, time.Now())

	logger.Info("开始生成报告 (类型: %s, 语气: %s, 提供商: %s, 模型: %s)",
		req.ReportType, req.Tone, cfg.Provider, cfg.Model)

	var content string
	var err error
	switch cfg.Provider {
	case "openai":
		content, err = g.callOpenAI(ctx, prompt, cfg, "https://api.openai.com/v1/chat/completions")
	case "anthropic":
		content, err = g.callAnthropic(ctx, prompt, cfg)
	case "deepseek":
		// DeepSeek 使用与 OpenAI 相同的 API 格式
		content, err = g.callOpenAI(ctx, prompt, cfg, "https://api.deepseek.com/v1/chat/completions")
	default:
		return "", fmt.Errorf("unsupported AI provider: %s", cfg.Provider)
	}

	if err != nil {
		logger.Error("报告生成失败: %v", err)
		return "", err
	}

	logger.Info("报告生成成功，长度: %d 字符", len(content))
	return content, nil
}

// BuildPrompt 拼装生成提示词
func BuildPrompt(req *models.GenerationRequest, summary models.ActivitySummary, templatesText string, now time.Time) string {
	today := now.Format("January 2, 2006")

	notes := req.AdditionalNotes
	if notes == "" {
		notes = "None"
	}

	templateSection := ""
	if templatesText != "" {
		templateSection = fmt.Sprintf(
			"\n\nHere are examples of past reports to match the style and format:\n%s", templatesText)
	}

	return fmt.Sprintf(`You are a professional report assistant. Generate a %s report for %s.

Tone: %s
Main apps used today: %s
Additional notes from the user: %s
%s

Instructions:
- Match the structure and style of the example reports above if provided
- Highlight key accomplishments and tasks completed
- Keep it concise and ready to send to a team
- Use bullet points where appropriate
- If it's a social media post, make it engaging and on-brand

Generate the report now:`,
		req.ReportType, today, req.Tone, summary.TopAppsLine(), notes, templateSection)
}

// OpenAI 请求结构
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAI 响应结构
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// callOpenAI 调用 OpenAI 兼容 API
func (g *Generator) callOpenAI(ctx context.Context, prompt string, cfg models.AIConfig, defaultEndpoint string) (string, error) {
	reqBody := openAIRequest{
		Model: cfg.Model,
		Messages: []openAIMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := defaultEndpoint
	if cfg.BaseURL != "" {
		endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey))

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return strings.TrimSpace(apiResp.Choices[0].Message.Content), nil
}

// Anthropic 请求结构
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Anthropic 响应结构
type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// callAnthropic 调用 Anthropic API
func (g *Generator) callAnthropic(ctx context.Context, prompt string, cfg models.AIConfig) (string, error) {
	reqBody := anthropicRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := "https://api.anthropic.com/v1/messages"
	if cfg.BaseURL != "" {
		endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/v1/messages"
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", cfg.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error: %s - %s", resp.Status, string(body))
	}

	var apiResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return strings.TrimSpace(apiResp.Content[0].Text), nil
}
