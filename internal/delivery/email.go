package delivery

import (
	"fmt"
	"net/smtp"
	"strings"

	"reportbot/pkg/logger"
	"reportbot/pkg/models"
)

// EmailSink 通过 SMTP 投递报告
// 587 端口由 net/smtp 自动协商 STARTTLS
type EmailSink struct {
	cfg models.EmailConfig
}

// NewEmailSink 创建邮件投递目标
func NewEmailSink(cfg models.EmailConfig) (*EmailSink, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("email credentials not configured, set GMAIL_USER, GMAIL_APP_PASSWORD and REPORT_RECIPIENT")
	}
	return &EmailSink{cfg: cfg}, nil
}

// Name 投递目标名称
func (s *EmailSink) Name() string {
	return "email"
}

// Deliver 发送报告邮件
func (s *EmailSink) Deliver(subject, content string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)

	msg := buildMessage(s.cfg.Username, s.cfg.Recipient, subject, content)

	if err := smtp.SendMail(addr, auth, s.cfg.Username, []string{s.cfg.Recipient}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("报告邮件已发送: %s -> %s", subject, s.cfg.Recipient)
	return nil
}

// buildMessage 拼装 RFC 5322 邮件内容
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", to))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
