package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"

	"github.com/hrdesk/notify-service/internal/config"
	"github.com/hrdesk/notify-service/internal/model"
)

const welcomeTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Hi {{.Name}}, welcome aboard!</p>
  <p>Your position: {{.Position}}</p>
  <p>Your job level: {{.JobLevel}}</p>
  <p>Your department: {{.Department}}</p>
  <p>— HR</p>
</body>
</html>`

// SMTPSender sends the welcome mail over plain SMTP.
type SMTPSender struct {
	cfg  config.SMTPConfig
	tmpl *template.Template
}

// NewSMTPSender parses the welcome template once.
func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	tmpl, err := template.New("welcome").Parse(welcomeTemplate)
	if err != nil {
		return nil, err
	}
	return &SMTPSender{cfg: cfg, tmpl: tmpl}, nil
}

// Send renders and transmits the welcome mail. Invalid recipients and render
// failures are permanent; SMTP transport errors are retryable.
func (s *SMTPSender) Send(_ context.Context, recipient string, vars model.WelcomePayload) error {
	if !strings.Contains(recipient, "@") {
		return Permanent(fmt.Errorf("invalid recipient %q", recipient))
	}

	body, err := s.render(vars)
	if err != nil {
		return Permanent(fmt.Errorf("render welcome mail: %w", err))
	}

	msg := buildMessage(s.cfg.From, recipient, "Welcome aboard", body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		host := s.cfg.Addr
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	}
	if err := smtp.SendMail(s.cfg.Addr, auth, s.cfg.From, []string{recipient}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (s *SMTPSender) render(vars model.WelcomePayload) (string, error) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, vars); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
