package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/authcore/internal/tokens"
)

func TestRecordRefreshToken_DuplicateJTIConflicts(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "ledger@test.com", "tenant")
	jti := tokens.NewJTI()
	exp := time.Now().Add(24 * time.Hour)

	require.NoError(t, r.RecordRefreshToken(ctx, user.ID, jti, exp))

	err := r.RecordRefreshToken(ctx, user.ID, jti, exp)
	assert.ErrorIs(t, err, ErrJTIConflict)
}

func TestRevokeRefreshToken(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "revoke@test.com", "tenant")
	jti := tokens.NewJTI()

	require.NoError(t, r.RecordRefreshToken(ctx, user.ID, jti, time.Now().Add(time.Hour)))

	affected, err := r.RevokeRefreshToken(ctx, jti)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	token, err := r.FindRefreshTokenByJTI(ctx, jti)
	require.NoError(t, err)
	assert.True(t, token.Revoked)
}

func TestRevokeRefreshToken_UnknownJTI(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	affected, err := r.RevokeRefreshToken(context.Background(), tokens.NewJTI())
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestIsRevokedOrUnknown(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := createTestUser(t, r, "liveness@test.com", "tenant")

	t.Run("unknown jti is treated as revoked", func(t *testing.T) {
		dead, err := r.IsRevokedOrUnknown(ctx, tokens.NewJTI())
		require.NoError(t, err)
		assert.True(t, dead)
	})

	t.Run("recorded jti is live", func(t *testing.T) {
		jti := tokens.NewJTI()
		require.NoError(t, r.RecordRefreshToken(ctx, user.ID, jti, time.Now().Add(time.Hour)))

		dead, err := r.IsRevokedOrUnknown(ctx, jti)
		require.NoError(t, err)
		assert.False(t, dead)
	})

	t.Run("revoked jti is dead", func(t *testing.T) {
		jti := tokens.NewJTI()
		require.NoError(t, r.RecordRefreshToken(ctx, user.ID, jti, time.Now().Add(time.Hour)))
		_, err := r.RevokeRefreshToken(ctx, jti)
		require.NoError(t, err)

		dead, err := r.IsRevokedOrUnknown(ctx, jti)
		require.NoError(t, err)
		assert.True(t, dead)
	})
}

func TestFindRefreshTokenByJTI_NotFound(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	_, err := r.FindRefreshTokenByJTI(context.Background(), tokens.NewJTI())
	assert.ErrorIs(t, err, ErrNotFound)
}
