package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

func newTestTransactions(t *testing.T, repo *fakeTransactions) (*transactionService, *fakeUsage) {
	t.Helper()
	usage := newFakeUsage()
	q := newTestQuota(t, newFakeUsers(), usage, &fakeAdmins{}, QuotaConfig{})
	s := NewTransactionService(repo, q, "+03:00", zap.NewNop()).(*transactionService)
	s.now = fixedClock(quotaNow)
	return s, usage
}

func TestBulkDelete(t *testing.T) {
	repo := &fakeTransactions{matches: 4}
	s, usage := newTestTransactions(t, repo)
	days := 7

	res, err := s.BulkDelete(context.Background(), Caller{UID: "u1"}, models.BulkDeleteRequest{
		Filters: &models.TransactionFilter{Days: &days, TransactionType: "expense", Category: "Market"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.DeletedCount)
	assert.Equal(t, "4 işlem başarıyla silindi", res.Message)
	assert.Equal(t, map[string]int{"bulk_delete": 1}, res.Usage.ByType)
	assert.Equal(t, 1, usage.count("u1", quota.PeriodDaily, "2026-03-15", quota.RequestChat))

	require.Len(t, repo.queries, 1)
	q := repo.queries[0]
	assert.Equal(t, quotaNow.AddDate(0, 0, -7), q.Since)
	assert.Equal(t, "expense", q.Type)
	assert.Equal(t, "Market", q.Category)
}

func TestBulkDeleteNothingMatchedIsFree(t *testing.T) {
	repo := &fakeTransactions{}
	s, usage := newTestTransactions(t, repo)
	today := 0

	res, err := s.BulkDelete(context.Background(), Caller{UID: "u1"}, models.BulkDeleteRequest{
		Filters: &models.TransactionFilter{Days: &today, TransactionType: "all"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Silinecek işlem bulunamadı", res.Message)
	assert.Nil(t, res.Usage)
	assert.Equal(t, 0, usage.count("u1", quota.PeriodDaily, "2026-03-15", quota.RequestChat))

	q := repo.queries[0]
	assert.Equal(t, time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC), q.Since)
	assert.Empty(t, q.Type)
}

func TestBulkDeleteValidationAndQuota(t *testing.T) {
	ctx := context.Background()
	repo := &fakeTransactions{matches: 1}
	s, _ := newTestTransactions(t, repo)

	_, err := s.BulkDelete(ctx, Caller{}, models.BulkDeleteRequest{Filters: &models.TransactionFilter{}})
	assert.Equal(t, codes.Unauthenticated, CodeOf(err))
	_, err = s.BulkDelete(ctx, Caller{UID: "u1"}, models.BulkDeleteRequest{})
	assert.Equal(t, codes.InvalidArgument, CodeOf(err))

	for i := 0; i < 10; i++ {
		_, err := s.BulkDelete(ctx, Caller{UID: "u1"}, models.BulkDeleteRequest{Filters: &models.TransactionFilter{}})
		require.NoError(t, err)
	}
	_, err = s.BulkDelete(ctx, Caller{UID: "u1"}, models.BulkDeleteRequest{Filters: &models.TransactionFilter{}})
	assert.Equal(t, codes.ResourceExhausted, CodeOf(err))
	assert.Len(t, repo.queries, 10)
}

func TestBulkDeleteReturnsResultWhenQuotaRaceIsLost(t *testing.T) {
	ctx := context.Background()
	repo := &fakeTransactions{matches: 3}
	s, usage := newTestTransactions(t, repo)
	caller := Caller{UID: "u1"}
	for i := 0; i < 9; i++ {
		_, err := s.quota.IncrementDailyUsage(ctx, caller, "+03:00", "", quota.RequestChat)
		require.NoError(t, err)
	}
	// A concurrent request takes the last unit while the delete runs.
	repo.onDelete = func() {
		_, err := s.quota.IncrementDailyUsage(ctx, caller, "+03:00", "", quota.RequestChat)
		require.NoError(t, err)
	}

	res, err := s.BulkDelete(ctx, caller, models.BulkDeleteRequest{Filters: &models.TransactionFilter{}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.DeletedCount)
	require.NotNil(t, res.Usage)
	require.NotNil(t, res.Usage.Daily)
	assert.Equal(t, 9, res.Usage.Daily.Current)
	assert.Equal(t, 10, usage.count("u1", quota.PeriodDaily, "2026-03-15", quota.RequestChat))
	assert.Len(t, repo.queries, 1)
}
