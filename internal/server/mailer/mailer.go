// Package mailer delivers one-time verification codes by email.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/dmitrijs2005/xrayportal/internal/logging"
	"github.com/wneessen/go-mail"
)

const otpSubject = "Your X-ray Portal Verification Code"

// Mailer sends a verification code to an address.
type Mailer interface {
	SendOTP(ctx context.Context, to, code string, validity time.Duration) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #2563eb; text-align: center;">X-ray Portal Verification</h2>
  <div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <p style="margin-bottom: 20px;">Your verification code is:</p>
    <div style="background-color: #ffffff; padding: 15px; border-radius: 4px; text-align: center; font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</div>
    <p style="margin-top: 20px; font-size: 14px; color: #6b7280;">This code will expire in {{.Minutes}} minutes.</p>
  </div>
  <p style="color: #6b7280; font-size: 12px; text-align: center;">If you didn't request this code, please ignore this email.</p>
</div>
`))

// RenderOTP returns the HTML body of the verification email.
func RenderOTP(code string, validity time.Duration) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(validity.Minutes())}
	if err := otpTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render otp email: %w", err)
	}
	return buf.String(), nil
}

// SMTPConfig describes the submission server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an authenticated STARTTLS submission server.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}

	return &SMTPMailer{
		cfg: cfg,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

// BuildOTPMessage assembles the message without sending it.
func (m *SMTPMailer) BuildOTPMessage(to, code string, validity time.Duration) (*mail.Msg, error) {
	body, err := RenderOTP(code, validity)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(otpSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, code string, validity time.Duration) error {
	msg, err := m.BuildOTPMessage(to, code, validity)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. Development only.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendOTP(ctx context.Context, to, code string, validity time.Duration) error {
	m.log.Warn(ctx, "smtp not configured, verification code logged", "to", to, "code", code, "validity", validity.String())
	return nil
}
