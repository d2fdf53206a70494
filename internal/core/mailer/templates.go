package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

const (
	SubjectVerification  = "BulkBuy - Email Verification"
	SubjectPasswordReset = "BulkBuy - Password Reset"
)

type otpEmailData struct {
	Name      string
	Code      string
	ExpiresIn string
	AppURL    string
	Heading   string
	Intro     string
	Accent    string
}

var otpTmpl = template.Must(template.New("otp").Parse(otpHTMLTemplate))

func renderOTP(d otpEmailData) (string, error) {
	var buf bytes.Buffer
	if err := otpTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatTTL(ttl time.Duration) string {
	m := int(ttl.Minutes())
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

// OTPMailer 验证码邮件
type OTPMailer struct {
	Sender Sender
	AppURL string
}

func NewOTPMailer(s Sender, appURL string) *OTPMailer {
	return &OTPMailer{Sender: s, AppURL: appURL}
}

func (m *OTPMailer) SendVerificationOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return m.send(ctx, to, SubjectVerification, otpEmailData{
		Name:      name,
		Code:      code,
		ExpiresIn: formatTTL(ttl),
		AppURL:    m.AppURL,
		Heading:   "Verify Your Email",
		Intro:     "Thank you for signing up for BulkBuy! Use the code below to verify your email address.",
		Accent:    "#667eea",
	})
}

func (m *OTPMailer) SendPasswordResetOTP(ctx context.Context, to, name, code string, ttl time.Duration) error {
	return m.send(ctx, to, SubjectPasswordReset, otpEmailData{
		Name:      name,
		Code:      code,
		ExpiresIn: formatTTL(ttl),
		AppURL:    m.AppURL,
		Heading:   "Reset Your Password",
		Intro:     "We received a request to reset your BulkBuy password. Use the code below to continue.",
		Accent:    "#ee5a24",
	})
}

func (m *OTPMailer) send(ctx context.Context, to, subject string, d otpEmailData) error {
	html, err := renderOTP(d)
	if err != nil {
		return fmt.Errorf("render %q: %w", subject, err)
	}
	text := fmt.Sprintf("Hello %s,\n\n%s\n\nYour code: %s\nThis code expires in %s.\n\nIf you did not request this, ignore this email.\n",
		d.Name, d.Intro, d.Code, d.ExpiresIn)
	return m.Sender.Send(ctx, Message{To: to, Subject: subject, HTMLBody: html, TextBody: text})
}

const otpHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Heading}}</title>
</head>
<body style="margin:0;padding:0;font-family:Arial,sans-serif;line-height:1.6;background-color:#f4f4f4;">
  <div style="max-width:600px;margin:0 auto;background:#ffffff;padding:20px;border-radius:10px;">
    <div style="background:{{.Accent}};color:#ffffff;padding:20px;text-align:center;border-radius:10px 10px 0 0;">
      <h1 style="margin:0;">BulkBuy</h1>
      <p style="margin:4px 0 0;">{{.Heading}}</p>
    </div>
    <div style="padding:20px;">
      <p>Hello {{.Name}},</p>
      <p>{{.Intro}}</p>
      <div style="background:#f8f9fa;border:2px dashed {{.Accent}};padding:20px;text-align:center;margin:20px 0;border-radius:8px;">
        <span style="font-size:32px;font-weight:bold;letter-spacing:8px;font-family:'Courier New',monospace;">{{.Code}}</span>
      </div>
      <p>This code expires in <strong>{{.ExpiresIn}}</strong>.</p>
      <p style="color:#6b7280;font-size:14px;">If you did not request this, you can safely ignore this email.</p>
      {{if .AppURL}}<p><a href="{{.AppURL}}">{{.AppURL}}</a></p>{{end}}
    </div>
  </div>
</body>
</html>
`
