package user

import "time"

type UserModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(24)"`
	Name            string    `gorm:"size:50;not null"`
	Email           string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string    `gorm:"size:100;not null"`
	Avatar          string    `gorm:"size:512"`
	Role            string    `gorm:"size:16;not null"`
	IsActive        bool      `gorm:"not null"`
	IsEmailVerified bool      `gorm:"not null"`
	IsOnline        bool      `gorm:"not null;index:idx_users_online_activity,priority:1"`
	LastActivity    time.Time `gorm:"index:idx_users_online_activity,priority:2"`
	LastLogin       *time.Time

	EmailOTP        *string    `gorm:"column:email_verification_otp;size:6"`
	EmailOTPExpires *time.Time `gorm:"column:email_verification_otp_expires"`
	ResetOTP        *string    `gorm:"column:password_reset_otp;size:6"`
	ResetOTPExpires *time.Time `gorm:"column:password_reset_otp_expires"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (UserModel) TableName() string { return "users" }

// SecretColumns 默认查询排除的列
var SecretColumns = []string{
	"password_hash",
	"email_verification_otp",
	"email_verification_otp_expires",
	"password_reset_otp",
	"password_reset_otp_expires",
}
