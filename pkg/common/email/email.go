package email

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gopkg.in/gomail.v2"
)

// Message 一封纯文本邮件
type Message struct {
	To      string
	Subject string
	Text    string
}

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPClient 基于 gomail 的 SMTP 发送实现
type SMTPClient struct {
	dialer *gomail.Dialer
	from   string
}

var _ Sender = (*SMTPClient)(nil)

func NewSMTPClient(host string, port int, username, password, from string) *SMTPClient {
	return &SMTPClient{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (c *SMTPClient) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	select {
	case <-ctx.Done():
		hlog.CtxWarnf(ctx, "Email send to %s cancelled: %v", msg.To, ctx.Err())
		return ctx.Err()
	default:
		if err := c.dialer.DialAndSend(m); err != nil {
			hlog.CtxErrorf(ctx, "Failed to send email to %s: %v", msg.To, err)
			return err
		}
		hlog.CtxInfof(ctx, "Email %q sent to %s", msg.Subject, msg.To)
		return nil
	}
}
