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
)

type referralFixture struct {
	users     *fakeUsers
	points    *fakePoints
	referrals *fakeReferrals
	audit     *fakeAudit
	svc       ReferralService
}

func newReferralFixture(users ...*models.User) *referralFixture {
	f := &referralFixture{users: newFakeUsers(users...), points: newFakePoints(), audit: &fakeAudit{}}
	f.referrals = newFakeReferrals(f.users, f.points)
	admins := newTestAdmins(&fakeAdmins{admins: []string{"admin"}}, f.users, nil, f.audit)
	svc := NewReferralService(f.users, f.referrals, admins, f.audit, zap.NewNop()).(*referralService)
	svc.now = fixedClock(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	svc.newID = sequentialID
	f.svc = svc
	return f
}

func TestReferralCodeFor(t *testing.T) {
	assert.Equal(t, "ABCDEFGH", ReferralCodeFor("abcdefghijk"))
	assert.Equal(t, "XY", ReferralCodeFor("xy"))
}

func TestProcessReferralCodeSuccess(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(
		&models.User{ID: "referrer123", ReferralCode: "REFERRER"},
		&models.User{ID: "newuser99", Email: "new@example.com"},
	)

	res, err := f.svc.ProcessReferralCode(ctx, Caller{UID: "newuser99"}, " referrer ")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, ReferralPoints, res.PointsAwarded)
	assert.Equal(t, 1, res.NewReferralCount)
	assert.Equal(t, 500, res.ReferrerNewBalance)
	assert.Equal(t, 500, res.NewUserNewBalance)

	u, err := f.users.GetByID(ctx, "newuser99")
	require.NoError(t, err)
	assert.Equal(t, "referrer123", u.ReferredBy)
	assert.Equal(t, models.ReferralStatusSuccess, u.ReferralStatus)
	assert.Equal(t, "NEWUSER9", u.ReferralCode)

	require.Len(t, f.points.entries, 2)
	assert.Equal(t, "newuser99", *f.points.entries[0].ReferenceID)
	assert.Equal(t, "referrer123", *f.points.entries[1].ReferenceID)
	assert.Equal(t, "new@example.com", f.referrals.records["referrer123"][0].ReferredUserEmail)

	res, err = f.svc.ProcessReferralCode(ctx, Caller{UID: "newuser99"}, "REFERRER")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "referrer123", res.ReferredBy)
}

func TestProcessReferralCodeRejections(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(&models.User{ID: "referrer123", ReferralCode: "REFERRER"})

	tests := []struct {
		name   string
		caller Caller
		code   string
		want   codes.Code
	}{
		{"unauthenticated", Caller{}, "REFERRER", codes.Unauthenticated},
		{"empty", Caller{UID: "u1"}, "  ", codes.InvalidArgument},
		{"bad format", Caller{UID: "u1"}, "abc", codes.InvalidArgument},
		{"unknown", Caller{UID: "u1"}, "ZZZZZZZZ", codes.NotFound},
		{"self", Caller{UID: "referrer123"}, "REFERRER", codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessReferralCode(ctx, tt.caller, tt.code)
			assert.Equal(t, tt.want, CodeOf(err))
		})
	}
	assert.Empty(t, f.points.entries)
}

func TestProcessReferralCodeMaxReached(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(&models.User{ID: "referrer123", ReferralCode: "REFERRER"})
	f.referrals.stats["referrer123"] = &models.ReferralStats{UserID: "referrer123", ReferralCount: MaxReferrals}

	res, err := f.svc.ProcessReferralCode(ctx, Caller{UID: "late"}, "REFERRER")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.True(t, res.MaxReached)
	assert.Empty(t, f.points.entries)

	u, err := f.users.GetByID(ctx, "late")
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusMaxReached, u.ReferralStatus)
	assert.Equal(t, "referrer123", u.ReferredBy)
}

func TestGenerateReferralCodes(t *testing.T) {
	ctx := context.Background()
	f := newReferralFixture(
		&models.User{ID: "admin"},
		&models.User{ID: "abcdefghij", ReferralCode: "KEEPTHIS"},
		&models.User{ID: "klmnopqrst", ReferralCode: "short"},
	)

	_, err := f.svc.GenerateReferralCodes(ctx, Caller{UID: "abcdefghij"})
	assert.Equal(t, codes.PermissionDenied, CodeOf(err))

	report, err := f.svc.GenerateReferralCodes(ctx, Caller{UID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Skipped)

	u, _ := f.users.GetByID(ctx, "klmnopqrst")
	assert.Equal(t, "KLMNOPQR", u.ReferralCode)
	u, _ = f.users.GetByID(ctx, "abcdefghij")
	assert.Equal(t, "KEEPTHIS", u.ReferralCode)
	assert.Contains(t, f.audit.actions(), ActionReferralCodes)
}
