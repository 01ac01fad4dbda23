package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

func TestEnsureProfileCreates(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers()
	s := NewUserService(users, nil, nil, UserConfig{}, zap.NewNop())

	u, err := s.EnsureProfile(ctx, Caller{UID: "abcdefghijkl", Email: "a@b.c", Name: "Ali"})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGH", u.ReferralCode)

	stored, err := users.GetByID(ctx, "abcdefghijkl")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", stored.Email)
	assert.Equal(t, "Ali", stored.DisplayName)
}

func TestEnsureProfileCompletesAndProcessesPendingReferral(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(
		&models.User{ID: "referrer123", ReferralCode: "REFERRER"},
		&models.User{ID: "newuser99", ReferredByCode: "REFERRER"},
	)
	s := NewUserService(f.users, f.svc, nil, UserConfig{}, zap.NewNop())

	_, err := s.EnsureProfile(ctx, Caller{UID: "newuser99", Email: "n@example.com"})
	require.NoError(t, err)

	u, err := f.users.GetByID(ctx, "newuser99")
	require.NoError(t, err)
	assert.Equal(t, "n@example.com", u.Email)
	assert.Equal(t, "referrer123", u.ReferredBy)
	assert.Len(t, f.points.entries, 2)

	// A second sign-in does not award again.
	_, err = s.EnsureProfile(ctx, Caller{UID: "newuser99"})
	require.NoError(t, err)
	assert.Len(t, f.points.entries, 2)
}

func TestSetTestMode(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(&models.User{ID: "u1"})
	s := NewUserService(users, nil, nil, UserConfig{OpenTestMode: true}, zap.NewNop())

	res, err := s.SetTestMode(ctx, Caller{UID: "u1"}, true)
	require.NoError(t, err)
	assert.True(t, res.IsPremiumPlus)
	assert.Equal(t, "Test mode enabled - Premium Plus activated", res.Message)

	tier, err := userTier(ctx, users, "u1")
	require.NoError(t, err)
	assert.Equal(t, quota.TierPremiumPlus, tier)

	_, err = s.SetTestMode(ctx, Caller{UID: "u1"}, false)
	require.NoError(t, err)
	tier, err = userTier(ctx, users, "u1")
	require.NoError(t, err)
	assert.Equal(t, quota.TierFree, tier)

	_, err = s.SetTestMode(ctx, Caller{}, true)
	assert.Equal(t, codes.Unauthenticated, CodeOf(err))
}

func TestSetTestModeRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(&models.User{ID: "free1"}, &models.User{ID: "admin1"})
	admins := newTestAdmins(&fakeAdmins{admins: []string{"admin1"}}, users, fakeDirectory{}, &fakeAudit{})
	s := NewUserService(users, nil, admins, UserConfig{}, zap.NewNop())

	_, err := s.SetTestMode(ctx, Caller{UID: "free1"}, true)
	assert.Equal(t, codes.PermissionDenied, CodeOf(err))
	tier, err := userTier(ctx, users, "free1")
	require.NoError(t, err)
	assert.Equal(t, quota.TierFree, tier)

	res, err := s.SetTestMode(ctx, Caller{UID: "admin1"}, true)
	require.NoError(t, err)
	assert.True(t, res.IsPremiumPlus)

	closed := NewUserService(users, nil, nil, UserConfig{}, zap.NewNop())
	_, err = closed.SetTestMode(ctx, Caller{UID: "free1"}, true)
	assert.Equal(t, codes.PermissionDenied, CodeOf(err))
}
