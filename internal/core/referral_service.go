package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
)

const (
	// ReferralPoints is awarded to both sides of a successful referral.
	ReferralPoints = 500
	// MaxReferrals is how many referrals earn the referrer points.
	MaxReferrals = 5
)

var referralCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

// ReferralCodeFor returns the referral code of a user: the first eight
// characters of the uid, upper-cased.
func ReferralCodeFor(userID string) string {
	return strings.ToUpper(prefix(userID, 8))
}

type referralService struct {
	users     db.UserRepository
	referrals db.ReferralRepository
	admins    AdminService
	audit     AuditService
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewReferralService(users db.UserRepository, referrals db.ReferralRepository, admins AdminService, audit AuditService, logger *zap.Logger) ReferralService {
	return &referralService{
		users:     users,
		referrals: referrals,
		admins:    admins,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *referralService) ProcessReferralCode(ctx context.Context, caller Caller, code string) (*models.ReferralResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, NewError(codes.InvalidArgument, "Referral code is required")
	}

	self, err := s.users.GetByID(ctx, caller.UID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, Internal("Process referral code", err)
	}
	if self != nil && self.ReferredBy != "" {
		return &models.ReferralResult{Success: false, Message: "User was already referred", ReferredBy: self.ReferredBy}, nil
	}

	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !referralCodePattern.MatchString(normalized) {
		return nil, NewError(codes.InvalidArgument, "Invalid referral code format. Referral code must be 8 alphanumeric characters.")
	}

	referrer, err := s.users.FindByReferralCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, Errorf(codes.NotFound, "Referral code %s not found. Please check the code and try again.", normalized)
		}
		return nil, Internal("Process referral code", err)
	}
	if referrer.ID == caller.UID {
		return nil, NewError(codes.InvalidArgument, "Cannot refer yourself")
	}

	var result *models.ReferralResult
	outcome, err := s.referrals.ProcessReferral(ctx, caller.UID, referrer.ID, func(st models.ReferralState) (*models.ReferralPlan, error) {
		now := s.now().UTC()
		switch {
		case st.Referred != nil && st.Referred.ReferredBy != "":
			result = &models.ReferralResult{Success: false, Message: "User was already referred", ReferredBy: st.Referred.ReferredBy}
			return nil, nil
		case st.ReferrerCount >= MaxReferrals:
			result = &models.ReferralResult{Success: false, Message: "Referrer has reached maximum referrals", MaxReached: true}
			return &models.ReferralPlan{
				ReferredID: caller.UID,
				ReferrerID: referrer.ID,
				Code:       normalized,
				Status:     models.ReferralStatusMaxReached,
				Now:        now,
			}, nil
		case st.AlreadyRecorded:
			result = &models.ReferralResult{Success: false, Message: "User was already referred by this referrer"}
			return nil, nil
		}

		email, name := caller.Email, caller.Name
		if st.Referred != nil {
			email = orDefault(st.Referred.ContactEmail(), email)
			name = orDefault(st.Referred.ContactName(), name)
		}
		referredUID, referrerUID := caller.UID, referrer.ID
		result = &models.ReferralResult{Success: true, Message: "Referral code processed successfully", PointsAwarded: ReferralPoints}
		return &models.ReferralPlan{
			ReferredID: caller.UID,
			ReferrerID: referrer.ID,
			Code:       normalized,
			OwnCode:    ReferralCodeFor(caller.UID),
			Status:     models.ReferralStatusSuccess,
			Points:     ReferralPoints,
			Record: &models.ReferralRecord{
				ID:                s.newID(),
				ReferredUserID:    caller.UID,
				ReferredUserEmail: email,
				ReferredUserName:  name,
				ReferralCodeUsed:  normalized,
				PointsAwarded:     ReferralPoints,
				ReferredAt:        now,
				CreatedAt:         now,
				UpdatedAt:         now,
			},
			ReferrerCredit: &models.PointTransaction{
				ID:          s.newID(),
				UserID:      referrer.ID,
				Points:      ReferralPoints,
				Activity:    models.ActivityReferral,
				ReferenceID: &referredUID,
				Description: fmt.Sprintf("Referans kodu ile yeni kullanıcı (%s)", normalized),
				EarnedAt:    now,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			ReferredCredit: &models.PointTransaction{
				ID:          s.newID(),
				UserID:      caller.UID,
				Points:      ReferralPoints,
				Activity:    models.ActivityReferral,
				ReferenceID: &referrerUID,
				Description: fmt.Sprintf("Referans kodu ile kayıt bonusu (%s)", normalized),
				EarnedAt:    now,
				CreatedAt:   now,
				UpdatedAt:   now,
			},
			Now: now,
		}, nil
	})
	if err != nil {
		return nil, AsError("Process referral code", err)
	}

	if result.Success && outcome != nil {
		result.NewReferralCount = outcome.ReferralCount
		result.ReferrerNewBalance = outcome.ReferrerBalance
		result.NewUserNewBalance = outcome.ReferredBalance
		s.logger.Info("Referral processed",
			zap.String("user_id", caller.UID),
			zap.String("referrer_id", referrer.ID),
			zap.Int("referral_count", outcome.ReferralCount))
	}
	return result, nil
}

// GenerateReferralCodes assigns a code to every user without a valid one.
func (s *referralService) GenerateReferralCodes(ctx context.Context, caller Caller) (*models.ReferralCodeReport, error) {
	if err := requireAdmin(ctx, s.admins, caller, "Only admins can generate referral codes"); err != nil {
		return nil, err
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, Internal("Generate referral codes", err)
	}

	pending := make(map[string]string)
	skipped := 0
	for _, u := range users {
		if len(u.ReferralCode) == 8 {
			skipped++
			continue
		}
		pending[u.ID] = ReferralCodeFor(u.ID)
	}
	written, failed := 0, 0
	if len(pending) > 0 {
		written, failed = s.users.SetReferralCodes(ctx, pending)
	}
	s.logger.Info("Referral code generation completed",
		zap.Int("updated", written),
		zap.Int("skipped", skipped),
		zap.Int("errors", failed))
	recordAudit(ctx, s.audit, s.logger, caller, ActionReferralCodes, "users", "", map[string]interface{}{
		"updated": written,
		"skipped": skipped,
		"errors":  failed,
	})

	return &models.ReferralCodeReport{
		Success: true,
		Message: "Referral codes generated successfully",
		Updated: written,
		Skipped: skipped,
		Errors:  failed,
		Total:   len(users),
	}, nil
}
