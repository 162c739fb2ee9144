package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"

	"github.com/dropDatabas3/accounts/internal/metrics"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
)

//go:embed templates/*
var templateFS embed.FS

// ErrSendFailed envuelve cualquier fallo de render o entrega.
var ErrSendFailed = errors.New("email: send failed")

const (
	TemplateVerificationCode = "verification_code"
	TemplateWelcome          = "welcome"
	TemplateSignIn           = "sign_in"
)

// NotifierConfig parametriza el contenido de los correos.
type NotifierConfig struct {
	Brand   string        // nombre del producto en asunto y cuerpo
	AppURL  string        // link "Access Your Account" (opcional)
	CodeTTL time.Duration // se muestra en el correo de verificación
}

type pair struct {
	html *htemplate.Template
	text *ttemplate.Template
}

// Notifier renderiza y entrega los correos del servicio.
type Notifier struct {
	sender Sender
	cfg    NotifierConfig
	tpl    map[string]pair
}

// NewNotifier parsea los templates embebidos.
func NewNotifier(sender Sender, cfg NotifierConfig) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("email: nil sender")
	}
	if cfg.Brand == "" {
		cfg.Brand = "Aeronomy"
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 10 * time.Minute
	}

	n := &Notifier{sender: sender, cfg: cfg, tpl: make(map[string]pair)}
	for _, name := range []string{TemplateVerificationCode, TemplateWelcome, TemplateSignIn} {
		h, err := htemplate.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("email: parse %s.html: %w", name, err)
		}
		t, err := ttemplate.ParseFS(templateFS, "templates/"+name+".txt")
		if err != nil {
			return nil, fmt.Errorf("email: parse %s.txt: %w", name, err)
		}
		n.tpl[name] = pair{html: h, text: t}
	}
	return n, nil
}

type vars struct {
	Brand  string
	AppURL string
	Name   string
	Code   string
	TTL    string
	IsNew  bool
}

func (n *Notifier) render(name string, v vars) (string, string, error) {
	p := n.tpl[name]
	var hb, tb bytes.Buffer
	if err := p.html.ExecuteTemplate(&hb, "layout", v); err != nil {
		return "", "", err
	}
	if err := p.text.Execute(&tb, v); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

func (n *Notifier) deliver(ctx context.Context, name, to, subject string, v vars) error {
	log := logger.From(ctx).With(
		logger.Layer("email"),
		logger.Template(name),
		logger.Email(to),
	)

	v.Brand = n.cfg.Brand
	v.AppURL = n.cfg.AppURL
	htmlBody, textBody, err := n.render(name, v)
	if err != nil {
		metrics.Notifications.WithLabelValues(name, "render_error").Inc()
		log.Error("email render failed", logger.Err(err))
		return fmt.Errorf("%w: render %s: %v", ErrSendFailed, name, err)
	}

	start := time.Now()
	if err := n.sender.Send(to, subject, htmlBody, textBody); err != nil {
		diag := DiagnoseSMTP(err)
		metrics.Notifications.WithLabelValues(name, diag.Code).Inc()
		log.Warn("email send failed",
			logger.String("smtp_diag", diag.Code),
			logger.Bool("temporary", diag.Temporary),
			logger.Duration(time.Since(start)),
			logger.Err(err),
		)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	metrics.Notifications.WithLabelValues(name, "sent").Inc()
	log.Debug("email sent", logger.Duration(time.Since(start)))
	return nil
}

// SendVerificationCode entrega el código. El caller trata el error como fatal.
func (n *Notifier) SendVerificationCode(ctx context.Context, to, name, code string) error {
	return n.deliver(ctx, TemplateVerificationCode, to,
		fmt.Sprintf("Verify your %s account", n.cfg.Brand),
		vars{Name: greeting(name, to), Code: code, TTL: humanTTL(n.cfg.CodeTTL)},
	)
}

// SendWelcome entrega el correo de bienvenida tras crear la cuenta.
func (n *Notifier) SendWelcome(ctx context.Context, to, name string) error {
	return n.deliver(ctx, TemplateWelcome, to,
		fmt.Sprintf("Welcome to %s", n.cfg.Brand),
		vars{Name: greeting(name, to)},
	)
}

// SendSignInConfirmation cambia asunto y cuerpo según sea una cuenta nueva.
func (n *Notifier) SendSignInConfirmation(ctx context.Context, to, name string, isNew bool) error {
	subject := fmt.Sprintf("Sign-in confirmation - %s", n.cfg.Brand)
	if isNew {
		subject = fmt.Sprintf("Your %s account has been created", n.cfg.Brand)
	}
	return n.deliver(ctx, TemplateSignIn, to, subject, vars{Name: greeting(name, to), IsNew: isNew})
}

// SendTest entrega un correo mínimo para validar la configuración SMTP.
func (n *Notifier) SendTest(ctx context.Context, to string) error {
	subject := fmt.Sprintf("%s SMTP test", n.cfg.Brand)
	body := fmt.Sprintf("This is a test message from %s.", n.cfg.Brand)
	if err := n.sender.Send(to, subject, "", body); err != nil {
		diag := DiagnoseSMTP(err)
		return fmt.Errorf("%w (%s): %v", ErrSendFailed, diag.Code, err)
	}
	return nil
}

func greeting(name, email string) string {
	if name != "" {
		return name
	}
	return email
}

func humanTTL(d time.Duration) string {
	if d%time.Minute == 0 {
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}
