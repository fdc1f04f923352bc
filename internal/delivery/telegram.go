package delivery

import (
	"fmt"
	"strconv"

	"reportbot/pkg/logger"
	"reportbot/pkg/models"
	"reportbot/pkg/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram 单条消息长度上限
const telegramMessageLimit = 4096

// TelegramSink 通过 Telegram Bot 投递报告
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramSink 创建 Telegram 投递目标
func NewTelegramSink(cfg models.TelegramConfig) (*TelegramSink, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("telegram not configured, set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id: %w", err)
	}

	return &TelegramSink{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Name 投递目标名称
func (s *TelegramSink) Name() string {
	return "telegram"
}

// Deliver 发送报告消息
func (s *TelegramSink) Deliver(subject, content string) error {
	text := utils.TruncateString(fmt.Sprintf("%s\n\n%s", subject, content), telegramMessageLimit)

	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	logger.Info("报告已通过 Telegram 发送: %s", subject)
	return nil
}
