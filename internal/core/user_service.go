package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/quota"
)

// UserConfig holds the user service settings.
type UserConfig struct {
	// OpenTestMode lets any signed-in user toggle test mode. Admins always can.
	OpenTestMode bool
}

// userService implements the UserService interface.
type userService struct {
	userRepo  db.UserRepository
	referrals ReferralService
	admins    AdminService
	cfg       UserConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates a new UserService instance. referrals may be nil, in
// which case pending referral codes are left unprocessed.
func NewUserService(userRepo db.UserRepository, referrals ReferralService, admins AdminService, cfg UserConfig, logger *zap.Logger) UserService {
	return &userService{
		userRepo:  userRepo,
		referrals: referrals,
		admins:    admins,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// EnsureProfile creates users/{uid} on first sight and fills in identity
// fields and the referral code the document is missing. A referral code the
// app stored before sign-up completed is processed once.
func (s *userService) EnsureProfile(ctx context.Context, caller Caller) (*models.User, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, caller.UID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to get user by ID '%s' from repository: %w", caller.UID, err)
		}
		now := s.now().UTC()
		newUser := &models.User{
			ID:           caller.UID,
			Email:        caller.Email,
			DisplayName:  caller.Name,
			ReferralCode: ReferralCodeFor(caller.UID),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			return nil, fmt.Errorf("failed to create user (id: %s) after not found: %w", caller.UID, err)
		}
		s.logger.Info("User profile created", zap.String("user_id", caller.UID))
		return newUser, nil
	}

	fields := map[string]interface{}{}
	if user.Email == "" && caller.Email != "" {
		fields["email"] = caller.Email
		user.Email = caller.Email
	}
	if user.DisplayName == "" && caller.Name != "" {
		fields["displayName"] = caller.Name
		user.DisplayName = caller.Name
	}
	if len(user.ReferralCode) != 8 {
		user.ReferralCode = ReferralCodeFor(caller.UID)
		fields["referral_code"] = user.ReferralCode
	}
	if len(fields) > 0 {
		if err := s.userRepo.Merge(ctx, caller.UID, fields); err != nil {
			return nil, fmt.Errorf("failed to complete profile of user '%s': %w", caller.UID, err)
		}
	}

	if s.referrals != nil && user.ReferredByCode != "" && user.ReferredBy == "" {
		res, err := s.referrals.ProcessReferralCode(ctx, caller, user.ReferredByCode)
		switch {
		case err != nil:
			s.logger.Warn("Pending referral code rejected",
				zap.String("user_id", caller.UID),
				zap.String("code", user.ReferredByCode),
				zap.Error(err))
		case res.Success:
			s.logger.Info("Pending referral code processed", zap.String("user_id", caller.UID))
		}
	}
	return user, nil
}

// SetTestMode switches the caller between the free tier and premium_plus.
// Only admins may do so unless test mode is open.
func (s *userService) SetTestMode(ctx context.Context, caller Caller, enabled bool) (*models.TestModeResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if !s.cfg.OpenTestMode {
		if s.admins == nil {
			return nil, NewError(codes.PermissionDenied, "Only admins can change test mode")
		}
		if err := requireAdmin(ctx, s.admins, caller, "Only admins can change test mode"); err != nil {
			return nil, err
		}
	}
	status := string(quota.TierFree)
	message := "Test mode disabled - Back to Free"
	if enabled {
		status = string(quota.TierPremiumPlus)
		message = "Test mode enabled - Premium Plus activated"
	}
	err := s.userRepo.Merge(ctx, caller.UID, map[string]interface{}{
		"isTestMode":         enabled,
		"isPremium":          enabled,
		"isPremiumPlus":      enabled,
		"subscriptionStatus": status,
	})
	if err != nil {
		return nil, Internal("Set test mode", err)
	}
	s.logger.Info("Test mode changed", zap.String("user_id", caller.UID), zap.Bool("enabled", enabled))
	return &models.TestModeResult{
		Success:       true,
		IsTestMode:    enabled,
		IsPremium:     enabled,
		IsPremiumPlus: enabled,
		Message:       message,
	}, nil
}
