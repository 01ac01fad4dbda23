package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/cache"
	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
)

// Audit actions.
const (
	ActionAdminAdd       = "ADMIN_ADD"
	ActionAdminAddPoints = "ADMIN_ADD_POINTS"
	ActionGiftCardSent   = "GIFT_CARD_SENT"
	ActionSupportStatus  = "SUPPORT_STATUS_UPDATE"
	ActionReferralCodes  = "REFERRAL_CODES_GENERATE"
)

type adminService struct {
	admins    db.AdminRepository
	users     db.UserRepository
	directory Directory
	cache     cache.Cache
	audit     AuditService
	bootstrap []string
	logger    *zap.Logger
}

// NewAdminService creates an AdminService. bootstrap lists uids that are always
// admins, whatever admins/admin_list holds.
func NewAdminService(admins db.AdminRepository, users db.UserRepository, directory Directory, c cache.Cache, audit AuditService, bootstrap []string, logger *zap.Logger) AdminService {
	return &adminService{
		admins:    admins,
		users:     users,
		directory: directory,
		cache:     c,
		audit:     audit,
		bootstrap: bootstrap,
		logger:    logger,
	}
}

func (s *adminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if slices.Contains(s.bootstrap, userID) {
		return true, nil
	}
	ids, err := cachedList(ctx, s.cache, adminListCacheKey, s.admins.ListAdmins)
	if err != nil {
		return false, fmt.Errorf("failed to read admin list: %w", err)
	}
	return slices.Contains(ids, userID), nil
}

// requireAdmin fails with permission-denied and message unless caller is an admin.
func requireAdmin(ctx context.Context, admins AdminService, caller Caller, message string) error {
	if err := requireAuth(caller); err != nil {
		return err
	}
	ok, err := admins.IsAdmin(ctx, caller.UID)
	if err != nil {
		return Internal("Admin check", err)
	}
	if !ok {
		return NewError(codes.PermissionDenied, message)
	}
	return nil
}

// AddAdmin is allowed for admins, and for anyone while the admin list is
// empty so that a fresh project can be bootstrapped.
func (s *adminService) AddAdmin(ctx context.Context, caller Caller, userID string) (*models.AddAdminResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(codes.InvalidArgument, "userId is required")
	}

	total := 0
	added, err := s.admins.AddAdmin(ctx, userID, func(current []string) error {
		total = len(current)
		if len(current) == 0 || slices.Contains(s.bootstrap, caller.UID) || slices.Contains(current, caller.UID) {
			return nil
		}
		return NewError(codes.PermissionDenied, "Only admins can add admins")
	})
	if err != nil {
		return nil, AsError("Add admin", err)
	}
	if !added {
		return &models.AddAdminResult{Success: true, Message: "User is already an admin", IsAdmin: true}, nil
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, adminListCacheKey); err != nil {
			s.logger.Warn("Failed to invalidate admin list cache", zap.Error(err))
		}
	}
	s.logger.Info("Admin added", zap.String("admin_id", userID), zap.String("by", caller.UID))
	recordAudit(ctx, s.audit, s.logger, caller, ActionAdminAdd, "user", userID, nil)

	return &models.AddAdminResult{
		Success:     true,
		Message:     fmt.Sprintf("User %s added to admin list", userID),
		TotalAdmins: total + 1,
	}, nil
}

// GetUserInfo resolves a display name and email for userID from the profile
// document, then from Firebase Auth. Lookup failures produce a fallback
// result rather than an error.
func (s *adminService) GetUserInfo(ctx context.Context, caller Caller, userID string) (*models.UserInfo, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, NewError(codes.InvalidArgument, "userId is required")
	}
	if err := requireAdmin(ctx, s, caller, "Only admins can read user info"); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		email, name := user.ContactEmail(), user.ContactName()
		if email != "" || name != "" {
			return &models.UserInfo{
				Success: true,
				UserID:  userID,
				Email:   orDefault(email, "N/A"),
				Name:    orDefault(name, "Kullanıcı"),
				Source:  "firestore",
			}, nil
		}
	case !errors.Is(err, db.ErrNotFound):
		return nil, Internal("Get user info", err)
	}

	authUser, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("User not found in Firebase Auth", zap.String("user_id", userID), zap.Error(err))
		return &models.UserInfo{
			Success: false,
			UserID:  userID,
			Email:   "N/A",
			Name:    "User " + prefix(userID, 8),
			Source:  "fallback",
			Error:   err.Error(),
		}, nil
	}

	email := orDefault(authUser.Email, "N/A")
	name := authUser.DisplayName
	if name == "" {
		name = "Kullanıcı"
		if email != "N/A" {
			name, _, _ = strings.Cut(email, "@")
		}
	}
	fields := map[string]interface{}{"email": email}
	if authUser.DisplayName != "" {
		fields["displayName"] = authUser.DisplayName
		fields["name"] = authUser.DisplayName
	}
	if err := s.users.Merge(ctx, userID, fields); err != nil {
		s.logger.Warn("Could not update user document", zap.String("user_id", userID), zap.Error(err))
	}

	return &models.UserInfo{Success: true, UserID: userID, Email: email, Name: name, Source: "auth"}, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// FirebaseDirectory implements Directory with the Firebase Auth admin client.
type FirebaseDirectory struct {
	client *auth.Client
}

func NewFirebaseDirectory(client *auth.Client) *FirebaseDirectory {
	return &FirebaseDirectory{client: client}
}

func (d *FirebaseDirectory) GetUser(ctx context.Context, userID string) (*models.AuthUser, error) {
	rec, err := d.client.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.AuthUser{UID: rec.UID, Email: rec.Email, DisplayName: rec.DisplayName}, nil
}
