package service

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkbuy-api/internal/domain"
)

func TestOTPIssuer(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	six := regexp.MustCompile(`^[1-9][0-9]{5}$`)

	iss := NewOTPIssuer()
	for i := 0; i < 200; i++ {
		o, err := iss.Issue(now)
		require.NoError(t, err)
		assert.Regexp(t, six, o.Code)
		assert.Equal(t, now.Add(OTPTTL), o.ExpiresAt)
	}

	_, err := OTPIssuer{Rand: bytes.NewReader(nil)}.Issue(now)
	assert.Error(t, err)
}

func TestVerifyOTP(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	stored := &domain.OTP{Code: "123456", ExpiresAt: now.Add(time.Minute)}

	tests := []struct {
		name   string
		stored *domain.OTP
		code   string
		at     time.Time
		want   bool
	}{
		{"match", stored, "123456", now, true},
		{"exact expiry", stored, "123456", now.Add(time.Minute), true},
		{"expired", stored, "123456", now.Add(time.Minute + time.Nanosecond), false},
		{"wrong code", stored, "654321", now, false},
		{"prefix", stored, "12345", now, false},
		{"nil", nil, "123456", now, false},
		{"cleared", &domain.OTP{ExpiresAt: now.Add(time.Hour)}, "", now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyOTP(tt.stored, tt.code, tt.at))
		})
	}
}
