package pkg

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func SendEmail(cfg SMTPConfig, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return d.DialAndSend(m)
}

// SMTPMailer 发送版主邀请邮件
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(cfg SMTPConfig, to, subject, body string) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: SendEmail}
}

func (m *SMTPMailer) SendModInvite(_ context.Context, to, inviter, community string) error {
	subject := fmt.Sprintf("You have been invited to moderate r/%s", community)
	return m.send(m.cfg, to, subject, ModInviteHTML(inviter, community))
}

func ModInviteHTML(inviter, community string) string {
	return fmt.Sprintf(`<p>Hi,</p><p><b>u/%s</b> invited you to become a moderator of <b>r/%s</b>.</p><p>Open your notifications to accept or decline.</p>`,
		html.EscapeString(inviter), html.EscapeString(community))
}
