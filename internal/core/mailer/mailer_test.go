package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type captureSender struct{ sent []Message }

func (c *captureSender) Send(_ context.Context, m Message) error {
	c.sent = append(c.sent, m)
	return nil
}

func TestOTPMailerRendersCodeAndSubject(t *testing.T) {
	cs := &captureSender{}
	m := NewOTPMailer(cs, "http://localhost:3000")

	require.NoError(t, m.SendVerificationOTP(context.Background(), "alice@example.com", "Alice", "123456", 10*time.Minute))
	require.NoError(t, m.SendPasswordResetOTP(context.Background(), "bob@example.com", "<Bob>", "654321", time.Minute))

	require.Len(t, cs.sent, 2)
	v := cs.sent[0]
	assert.Equal(t, SubjectVerification, v.Subject)
	assert.Equal(t, "alice@example.com", v.To)
	assert.Contains(t, v.HTMLBody, "123456")
	assert.Contains(t, v.HTMLBody, "10 minutes")
	assert.Contains(t, v.TextBody, "123456")

	r := cs.sent[1]
	assert.Equal(t, SubjectPasswordReset, r.Subject)
	assert.Contains(t, r.HTMLBody, "1 minute")
	// html/template 转义用户名
	assert.Contains(t, r.HTMLBody, "&lt;Bob&gt;")
	assert.NotContains(t, r.HTMLBody, "<Bob>")
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), Message{To: "a@b.co", Subject: "hi"}))
	assert.ErrorIs(t, s.Send(context.Background(), Message{To: " "}), ErrNoRecipient)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "a@b.co", logs.All()[0].ContextMap()["to"])
}

func TestEnvelopeAddrAndMIME(t *testing.T) {
	assert.Equal(t, "noreply@bulkbuy.com", envelopeAddr("BulkBuy <noreply@bulkbuy.com>"))
	assert.Equal(t, "x@y.io", envelopeAddr(" x@y.io "))

	raw := string(buildMIME("BulkBuy <noreply@bulkbuy.com>", Message{To: "a@b.co", Subject: "S", HTMLBody: "<p>x</p>"}))
	assert.Contains(t, raw, "From: BulkBuy <noreply@bulkbuy.com>\r\n")
	assert.Contains(t, raw, "Subject: S\r\n")
	assert.Contains(t, raw, "Content-Type: text/html")
	assert.Contains(t, raw, "\r\n\r\n<p>x</p>")
}

func TestSMTPSenderRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: 1})
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipient)
}
