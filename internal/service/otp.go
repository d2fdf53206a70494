package service

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"math/big"
	"strconv"
	"time"

	"bulkbuy-api/internal/domain"
)

const (
	OTPTTL = 10 * time.Minute

	otpMin   = 100000
	otpRange = 900000
)

// OTPIssuer 生成 6 位数字验证码
type OTPIssuer struct {
	TTL  time.Duration
	Rand io.Reader
}

func NewOTPIssuer() OTPIssuer { return OTPIssuer{TTL: OTPTTL, Rand: rand.Reader} }

func (o OTPIssuer) Issue(now time.Time) (*domain.OTP, error) {
	r := o.Rand
	if r == nil {
		r = rand.Reader
	}
	n, err := rand.Int(r, big.NewInt(otpRange))
	if err != nil {
		return nil, err
	}
	ttl := o.TTL
	if ttl <= 0 {
		ttl = OTPTTL
	}
	return &domain.OTP{
		Code:      strconv.FormatInt(n.Int64()+otpMin, 10),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// VerifyOTP 码一致且未过期
func VerifyOTP(stored *domain.OTP, code string, now time.Time) bool {
	if stored == nil || stored.Code == "" || stored.Expired(now) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) == 1
}
