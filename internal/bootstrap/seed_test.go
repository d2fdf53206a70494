package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulkbuy-api/internal/core/auth"
	"bulkbuy-api/internal/domain"
	"bulkbuy-api/internal/testutil"
)

func memStores() *Stores {
	st := testutil.NewStore()
	return &Stores{
		Users:    st.Users(),
		Products: st.Products(),
		Comments: st.Comments(),
		driver:   "memory",
		ping:     func(context.Context) error { return nil },
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	st := memStores()
	hasher := auth.NewBcryptHasher(4)

	res, err := Seed(ctx, st, hasher, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Users)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 6, res.Comments)

	alice, err := st.Users.FindByEmailWithSecrets(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, alice.IsEmailVerified)
	assert.True(t, hasher.Compare(alice.PasswordHash, SeedPassword))

	n, err := st.Comments.Count(ctx, domain.CommentFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)

	// 再次执行复用已有用户
	res, err = Seed(ctx, st, hasher, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Users)
	users, err := st.Users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, users)
	assert.NoError(t, st.Close())
	assert.Equal(t, "memory", st.Driver())
}
