package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_TouchRecomputesQuantity(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &Product{InterestedUsers: []string{"a", "b", "c"}, CurrentQuantity: 99}
	p.Touch(now)
	assert.Equal(t, 3, p.CurrentQuantity)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)

	later := now.Add(time.Hour)
	p.InterestedUsers = p.InterestedUsers[:1]
	p.Touch(later)
	assert.Equal(t, 1, p.CurrentQuantity)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, later, p.UpdatedAt)
}

func TestProduct_Derived(t *testing.T) {
	tests := []struct {
		name       string
		interested int
		min        int
		wantMin    bool
		wantPct    float64
	}{
		{"empty", 0, 2, false, 0},
		{"half", 1, 2, false, 50},
		{"reached", 2, 2, true, 100},
		{"exceeded caps at 100", 5, 2, true, 100},
		{"zero min", 0, 0, true, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{MinQuantity: tt.min, InterestedUsers: make([]string, tt.interested)}
			assert.Equal(t, tt.wantMin, p.HasMinimumInterest())
			assert.InDelta(t, tt.wantPct, p.ProgressPercentage(), 0.001)
		})
	}
}

func TestCanonicalCategory(t *testing.T) {
	c, ok := CanonicalCategory(" home & garden ")
	assert.True(t, ok)
	assert.Equal(t, "Home & Garden", c)

	_, ok = CanonicalCategory("Groceries")
	assert.False(t, ok)
}

func TestPage_Normalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Limit: DefaultLimit}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Limit: MaxLimit}, Page{Page: 3, Limit: 500}.Normalize())
	assert.Equal(t, 40, Page{Page: 3, Limit: 20}.Offset())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(Page{Page: 2, Limit: 10}, 25)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, HasNextPage: true, HasPrevPage: true}, p)

	empty := NewPagination(Page{Page: 1, Limit: 10}, 0)
	assert.False(t, empty.HasNextPage)
	assert.False(t, empty.HasPrevPage)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestUserRef(t *testing.T) {
	lookup := map[string]UserSummary{"u1": {ID: "u1", Name: "Alice"}}

	ref := RefID("u1")
	_, ok := ref.Expanded()
	assert.False(t, ok)
	assert.Equal(t, "Alice", ref.Resolve(lookup).Name)
	assert.Equal(t, UserSummary{ID: "gone"}, RefID("gone").Resolve(lookup))

	exp := RefExpanded(UserSummary{ID: "u2", Name: "Bob"})
	assert.Equal(t, "u2", exp.ID())
	assert.Equal(t, "Bob", exp.Resolve(nil).Name)

	b, err := json.Marshal([]UserRef{ref, exp})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"u1","name":"","avatar":""},{"id":"u2","name":"Bob","avatar":""}]`, string(b))
}

func TestUser_SecretsNeverSerialized(t *testing.T) {
	u := &User{
		ID: "u1", Name: "Alice", Email: "alice@example.com", PasswordHash: "hash",
		EmailVerification: &OTP{Code: "123456", ExpiresAt: time.Now()},
	}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "123456")

	u.StripSecrets()
	assert.Empty(t, u.PasswordHash)
	assert.Nil(t, u.EmailVerification)
}

func TestOTP_Expired(t *testing.T) {
	now := time.Now()
	var nilOTP *OTP
	assert.True(t, nilOTP.Expired(now))
	assert.False(t, (&OTP{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&OTP{ExpiresAt: now.Add(-time.Second)}).Expired(now))
}
