package stats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edustack.in/resource-bot/internal/config"
	"edustack.in/resource-bot/internal/features/access"
	"edustack.in/resource-bot/internal/features/catalog"
	"edustack.in/resource-bot/internal/features/verification"
)

func TestCollectRecomputesEverything(t *testing.T) {
	cfg := &config.Config{AdminIDs: []int64{1001}, GrantDuration: 168 * time.Hour}
	accessService := access.NewService(access.NewMemoryRepository(), cfg)
	queueService := verification.NewService(verification.NewMemoryRepository())
	catalogService := catalog.NewService(catalog.NewMemoryRepository())
	svc := NewService(accessService, queueService, catalogService)
	ctx := context.Background()

	sum, err := svc.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum) // пустая система — нули и пустой топ

	// Наполняем систему.
	require.NoError(t, accessService.EnsureUser(ctx, 2002))
	require.NoError(t, accessService.EnsureUser(ctx, 3003))
	_, err = accessService.Grant(ctx, 2002)
	require.NoError(t, err)

	req, err := queueService.Submit(ctx, 3003, "UPI-1")
	require.NoError(t, err)
	_, err = queueService.Submit(ctx, 2002, "UPI-2")
	require.NoError(t, err)
	_, _, err = queueService.Approve(ctx, req.ID)
	require.NoError(t, err)

	_, err = catalogService.AddSubject(ctx, "CSE211")
	require.NoError(t, err)
	res, err := catalogService.AddResource(ctx, "CSE211", "Lecture notes", "https://example.com")
	require.NoError(t, err)
	require.NoError(t, catalogService.RecordAccess(ctx, res.ID))

	sum, err = svc.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{
		TotalUsers:        2,
		ActiveSubscribers: 1,
		VerifiedPayments:  1,
		PendingRequests:   1,
		TotalResources:    1,
		SubjectCount:      1,
		MostAccessed:      "Lecture notes",
	}, sum)
}
