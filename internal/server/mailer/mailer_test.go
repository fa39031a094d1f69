package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestRenderOTP(t *testing.T) {
	body, err := RenderOTP("482913", 10*time.Minute)
	require.NoError(t, err)

	assert.Contains(t, body, "X-ray Portal Verification")
	assert.Contains(t, body, "482913")
	assert.Contains(t, body, "expire in 10 minutes")
}

func TestRenderOTP_EscapesCode(t *testing.T) {
	body, err := RenderOTP("<b>1</b>", time.Minute)
	require.NoError(t, err)
	assert.NotContains(t, body, "<b>1</b>")
}

func newTestMailer(t *testing.T) *SMTPMailer {
	t.Helper()
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "portal@example.com", Password: "pw"})
	require.NoError(t, err)
	return m
}

func TestBuildOTPMessage(t *testing.T) {
	m := newTestMailer(t)

	msg, err := m.BuildOTPMessage("alice@example.com", "123456", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, []string{otpSubject}, msg.GetGenHeader(mail.HeaderSubject))

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com"}, rcpts)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "portal@example.com")
	assert.Contains(t, raw, "123456")
	assert.True(t, strings.Contains(raw, "text/html"))
}

func TestBuildOTPMessage_InvalidRecipient(t *testing.T) {
	m := newTestMailer(t)

	_, err := m.BuildOTPMessage("not an address", "123456", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestSendOTP_UsesTransport(t *testing.T) {
	m := newTestMailer(t)

	var sent *mail.Msg
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		sent = msg
		return nil
	}

	require.NoError(t, m.SendOTP(context.Background(), "bob@example.com", "654321", 10*time.Minute))
	require.NotNil(t, sent)
}

func TestSendOTP_TransportError(t *testing.T) {
	m := newTestMailer(t)
	m.send = func(ctx context.Context, msg *mail.Msg) error {
		return errors.New("535 auth failed")
	}

	err := m.SendOTP(context.Background(), "bob@example.com", "654321", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send: 535 auth failed")
}

func TestLogMailer(t *testing.T) {
	var m Mailer = NewLogMailer(logging.Nop())
	assert.NoError(t, m.SendOTP(context.Background(), "a@b.c", "111111", time.Minute))
}
