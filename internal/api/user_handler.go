package api

import (
	"context"

	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/core"
	"qanta-backend-go/internal/models"
)

// UserHandler serves profile, admin, points and referral operations.
type UserHandler struct {
	users     core.UserService
	admins    core.AdminService
	points    core.PointsService
	referrals core.ReferralService
}

func NewUserHandler(users core.UserService, admins core.AdminService, points core.PointsService, referrals core.ReferralService) *UserHandler {
	return &UserHandler{users: users, admins: admins, points: points, referrals: referrals}
}

func (h *UserHandler) EnsureUserProfile(ctx context.Context, caller core.Caller, _ emptyRequest) (*models.User, error) {
	return h.users.EnsureProfile(ctx, caller)
}

// SetTestMode requires an explicit boolean from signed-in callers; a missing
// flag is not read as false.
func (h *UserHandler) SetTestMode(ctx context.Context, caller core.Caller, req models.SetTestModeRequest) (*models.TestModeResult, error) {
	if req.Enabled == nil && caller.Authenticated() {
		return nil, core.NewError(codes.InvalidArgument, "enabled must be a boolean")
	}
	return h.users.SetTestMode(ctx, caller, req.Enabled != nil && *req.Enabled)
}

func (h *UserHandler) AddAdmin(ctx context.Context, caller core.Caller, req models.UserIDRequest) (*models.AddAdminResult, error) {
	return h.admins.AddAdmin(ctx, caller, req.UserID)
}

func (h *UserHandler) GetUserInfo(ctx context.Context, caller core.Caller, req models.UserIDRequest) (*models.UserInfo, error) {
	return h.admins.GetUserInfo(ctx, caller, req.UserID)
}

func (h *UserHandler) AdminAddPoints(ctx context.Context, caller core.Caller, req models.AdminAddPointsRequest) (*models.AddPointsResult, error) {
	return h.points.AdminAddPoints(ctx, caller, req)
}

func (h *UserHandler) ProcessReferralCode(ctx context.Context, caller core.Caller, req models.ReferralCodeRequest) (*models.ReferralResult, error) {
	return h.referrals.ProcessReferralCode(ctx, caller, req.ReferralCode)
}

func (h *UserHandler) GenerateReferralCodesForAllUsers(ctx context.Context, caller core.Caller, _ emptyRequest) (*models.ReferralCodeReport, error) {
	return h.referrals.GenerateReferralCodes(ctx, caller)
}
