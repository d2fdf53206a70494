package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMySQLDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		user string
		pass string
		want string
	}{
		{
			name: "native dsn untouched",
			in:   "root:pw@tcp(127.0.0.1:3306)/bulkbuy?parseTime=true",
			want: "root:pw@tcp(127.0.0.1:3306)/bulkbuy?parseTime=true",
		},
		{
			name: "url form with defaults",
			in:   "mysql://root:pw@db:3306/bulkbuy",
			want: "root:pw@tcp(db:3306)/bulkbuy?charset=utf8mb4&parseTime=true",
		},
		{
			name: "jdbc with overrides",
			in:   "jdbc:mysql://db:3306/bulkbuy?useSSL=false&characterEncoding=utf8",
			user: "app",
			pass: "secret",
			want: "app:secret@tcp(db:3306)/bulkbuy?charset=utf8&parseTime=true&tls=false",
		},
		{name: "empty", in: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeMySQLDSN(tt.in, tt.user, tt.pass))
		})
	}
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/bulkbuy", MaskDSN("postgres://app:secret@db:5432/bulkbuy"))
	assert.Equal(t, "root:****@tcp(db:3306)/bulkbuy", MaskDSN("root:pw@tcp(db:3306)/bulkbuy"))
	assert.Equal(t, "host=db user=app", MaskDSN("host=db user=app"))
}

func TestNewGorm_UnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "sqlite"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}
