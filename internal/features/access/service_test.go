package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edustack.in/resource-bot/internal/config"
)

func newTestService() *Service {
	cfg := &config.Config{
		AdminIDs:      []int64{1001},
		GrantDuration: 168 * time.Hour,
	}
	return NewService(NewMemoryRepository(), cfg)
}

func TestIsAdminChecksWhitelist(t *testing.T) {
	svc := newTestService()

	assert.True(t, svc.IsAdmin(1001))
	assert.False(t, svc.IsAdmin(2002))
	assert.False(t, svc.IsAdmin(0))
}

func TestGrantIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	res, err := svc.Grant(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, GrantIssued, res)

	res, err = svc.Grant(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, GrantAlreadyActive, res)

	hasAccess, err := svc.HasAccess(ctx, 2002)
	require.NoError(t, err)
	assert.True(t, hasAccess)

	expiry, err := svc.AccessExpiry(ctx, 2002)
	require.NoError(t, err)
	require.NotNil(t, expiry)
	assert.WithinDuration(t, time.Now().Add(168*time.Hour), *expiry, time.Minute)
}

func TestRevoke(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	res, err := svc.Revoke(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, RevokeNotFound, res)

	_, err = svc.Grant(ctx, 2002)
	require.NoError(t, err)

	res, err = svc.Revoke(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, Revoked, res)

	hasAccess, err := svc.HasAccess(ctx, 2002)
	require.NoError(t, err)
	assert.False(t, hasAccess)
}

func TestSearchCounting(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.EnsureUser(ctx, 2002))

	count, err := svc.SearchCount(ctx, 2002)
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RegisterSearch(ctx, 2002))
	}

	count, err = svc.SearchCount(ctx, 2002)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	users, err := svc.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, users)
}

func TestExpireGrants(t *testing.T) {
	repo := NewMemoryRepository()
	cfg := &config.Config{AdminIDs: []int64{1001}, GrantDuration: 168 * time.Hour}
	svc := NewService(repo, cfg)
	ctx := context.Background()

	require.NoError(t, repo.EnsureUser(ctx, 2002))
	require.NoError(t, repo.UpsertGrant(ctx, &Grant{
		UserID:    2002,
		GrantedAt: time.Now().Add(-200 * time.Hour),
		ExpiresAt: time.Now().Add(-32 * time.Hour),
		Active:    true,
	}))

	// Просроченный грант уже не считается доступом.
	hasAccess, err := svc.HasAccess(ctx, 2002)
	require.NoError(t, err)
	assert.False(t, hasAccess)

	expired, err := svc.ExpireGrants(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	// Повторный прогон ничего не находит.
	expired, err = svc.ExpireGrants(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)

	count, err := svc.CountActiveGrants(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
