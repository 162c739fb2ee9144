// Package email entrega los correos transaccionales del servicio.
//
//	Notifier (templates html/txt) ──► Sender
//	                                   ├── SMTPSender (go-mail)
//	                                   └── LogSender  (dev: smtp.disabled)
package email

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/dropDatabas3/accounts/internal/observability/logger"
	mail "github.com/go-mail/mail"
)

// Sender entrega un mensaje multipart/alternative (txt + html).
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// SMTPConfig configura el SMTPSender.
type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // auto | starttls | ssl | none
	InsecureSkipVerify bool   // solo dev
	Timeout            time.Duration
}

// SMTPSender implementa Sender contra un relay SMTP.
type SMTPSender struct {
	cfg SMTPConfig
}

// NewSMTPSender valida la configuración mínima.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp: host and from are required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) message(to, subject, htmlBody, textBody string) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}
	return m
}

func (s *SMTPSender) dialer() *mail.Dialer {
	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	d.Timeout = s.cfg.Timeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify,
	}
	switch s.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		d.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return d
}

func (s *SMTPSender) Send(to, subject, htmlBody, textBody string) error {
	if err := s.dialer().DialAndSend(s.message(to, subject, htmlBody, textBody)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender no entrega nada: loguea el envío. Se usa con smtp.disabled.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody, textBody string) error {
	logger.L().Info("email not sent (log sender)",
		logger.Component("email"),
		logger.Email(to),
		logger.String("subject", subject),
		logger.Int("text_bytes", len(textBody)),
		logger.Int("html_bytes", len(htmlBody)),
	)
	return nil
}
