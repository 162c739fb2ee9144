package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	to, subject, html, text string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sent{to, subject, htmlBody, textBody})
	return nil
}

func newNotifier(t *testing.T, s Sender) *Notifier {
	t.Helper()
	n, err := NewNotifier(s, NotifierConfig{Brand: "Aeronomy", AppURL: "https://app.example.com"})
	require.NoError(t, err)
	return n
}

func TestSendVerificationCode(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)

	require.NoError(t, n.SendVerificationCode(context.Background(), "ana@example.com", "Ana Ruiz", "482913"))

	require.Len(t, fs.msgs, 1)
	m := fs.msgs[0]
	assert.Equal(t, "ana@example.com", m.to)
	assert.Equal(t, "Verify your Aeronomy account", m.subject)
	assert.Contains(t, m.html, "482913")
	assert.Contains(t, m.html, "Hi Ana Ruiz,")
	assert.Contains(t, m.text, "482913")
	assert.Contains(t, m.text, "10 minutes")
}

func TestSendVerificationCode_GreetsByEmailWithoutName(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)

	require.NoError(t, n.SendVerificationCode(context.Background(), "ana@example.com", "", "482913"))
	assert.Contains(t, fs.msgs[0].text, "Hi ana@example.com,")
}

func TestHTMLIsEscaped(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)

	require.NoError(t, n.SendWelcome(context.Background(), "x@example.com", "<script>alert(1)</script>"))
	assert.NotContains(t, fs.msgs[0].html, "<script>")
	assert.Contains(t, fs.msgs[0].html, "&lt;script&gt;")
}

func TestSendSignInConfirmation(t *testing.T) {
	fs := &fakeSender{}
	n := newNotifier(t, fs)
	ctx := context.Background()

	require.NoError(t, n.SendSignInConfirmation(ctx, "a@example.com", "Ana", true))
	require.NoError(t, n.SendSignInConfirmation(ctx, "a@example.com", "Ana", false))

	require.Len(t, fs.msgs, 2)
	assert.Equal(t, "Your Aeronomy account has been created", fs.msgs[0].subject)
	assert.Contains(t, fs.msgs[0].html, "Account Created")
	assert.Equal(t, "Sign-in confirmation - Aeronomy", fs.msgs[1].subject)
	assert.Contains(t, fs.msgs[1].text, "If this wasn't you")
}

func TestSendFailureWrapsErrSendFailed(t *testing.T) {
	n := newNotifier(t, &fakeSender{err: errors.New("535 5.7.8 authentication failed")})
	err := n.SendWelcome(context.Background(), "a@example.com", "Ana")
	assert.ErrorIs(t, err, ErrSendFailed)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestDiagnoseSMTP(t *testing.T) {
	cases := []struct {
		err  error
		code string
		temp bool
	}{
		{fmt.Errorf("wrap: %w", timeoutErr{}), "timeout", true},
		{errors.New("dial tcp 10.0.0.1:587: connect: connection refused"), "dial", true},
		{errors.New("x509: certificate signed by unknown authority"), "tls", false},
		{errors.New("535 5.7.8 Username and Password not accepted"), "auth", false},
		{errors.New("421 4.7.0 Try again later"), "rate_limited", true},
		{errors.New("550 5.1.1 user unknown"), "invalid_recipient", false},
		{errors.New("550 5.7.1 message rejected due to DMARC"), "rejected", false},
		{errors.New("something odd"), "unknown", false},
	}
	for _, tc := range cases {
		d := DiagnoseSMTP(tc.err)
		assert.Equal(t, tc.code, d.Code, tc.err.Error())
		assert.Equal(t, tc.temp, d.Temporary, tc.err.Error())
	}
}

func TestHumanTTL(t *testing.T) {
	assert.Equal(t, "10 minutes", humanTTL(10*time.Minute))
	assert.Equal(t, "1 minute", humanTTL(time.Minute))
	assert.Equal(t, "1m30s", humanTTL(90*time.Second))
}

func TestNewSMTPSenderDefaults(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "no-reply@example.com"})
	require.NoError(t, err)
	d := s.dialer()
	assert.Equal(t, 587, d.Port)
	assert.False(t, d.SSL)
	assert.Equal(t, "smtp.example.com", d.TLSConfig.ServerName)

	s, _ = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", From: "a@b.c", Port: 465, TLSMode: "ssl"})
	assert.True(t, s.dialer().SSL)
}
