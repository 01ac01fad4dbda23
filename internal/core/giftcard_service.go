package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"

	"qanta-backend-go/internal/db"
	"qanta-backend-go/internal/models"
	"qanta-backend-go/internal/notify"
)

// GiftCardValue is the face value of a card bought from reward credits or points.
const GiftCardValue = 100.0

// ClaimSealer encrypts gift card claim codes at rest.
type ClaimSealer interface {
	Seal(plainText string) (string, error)
	Open(sealed string) (string, error)
}

type giftCardService struct {
	users     db.UserRepository
	cards     db.GiftCardRepository
	directory Directory
	admins    AdminService
	sender    notify.Sender
	sealer    ClaimSealer
	audit     AuditService
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewGiftCardService creates a GiftCardService. sender may be nil when push
// notifications are not configured.
func NewGiftCardService(users db.UserRepository, cards db.GiftCardRepository, directory Directory, admins AdminService, sender notify.Sender, sealer ClaimSealer, audit AuditService, logger *zap.Logger) GiftCardService {
	return &giftCardService{
		users:     users,
		cards:     cards,
		directory: directory,
		admins:    admins,
		sender:    sender,
		sealer:    sealer,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func validateCardAmount(amount float64) error {
	if amount < GiftCardValue {
		return NewError(codes.InvalidArgument, "Amount must be at least 100 TL")
	}
	if math.Mod(amount, GiftCardValue) != 0 {
		return NewError(codes.InvalidArgument, "Amount must be a multiple of 100 TL")
	}
	return nil
}

// contactEmail is the email recorded on admin requests, "N/A" when unknown.
func (s *giftCardService) contactEmail(ctx context.Context, userID string) string {
	user, err := s.users.GetByID(ctx, userID)
	if err == nil {
		return orDefault(user.ContactEmail(), "N/A")
	}
	if !errors.Is(err, db.ErrNotFound) || s.directory == nil {
		return "N/A"
	}
	authUser, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("Could not get user from Auth", zap.String("user_id", userID), zap.Error(err))
		return "N/A"
	}
	return orDefault(authUser.Email, "N/A")
}

func (s *giftCardService) newCard(userID, recipient, provider string, amount, points float64, now time.Time) *models.GiftCard {
	return &models.GiftCard{
		ID:             s.newID(),
		UserID:         userID,
		Amount:         amount,
		Status:         models.GiftCardPending,
		RecipientEmail: recipient,
		Provider:       provider,
		CreditIDs:      []string{},
		PointsSpent:    points,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *giftCardService) newRequest(card *models.GiftCard, userEmail, phone string) *models.AdminRequest {
	return &models.AdminRequest{
		ID:          s.newID(),
		Type:        models.AdminRequestGiftCard,
		UserID:      card.UserID,
		UserEmail:   userEmail,
		GiftCardID:  card.ID,
		AmazonEmail: card.RecipientEmail,
		PhoneNumber: phone,
		Provider:    card.Provider,
		Amount:      card.Amount,
		PointsSpent: card.PointsSpent,
		Status:      models.AdminRequestPending,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.CreatedAt,
	}
}

// ConvertToGiftCard turns accumulated reward credits into 100 TL cards, oldest
// credits first. Without an amount every whole 100 TL of the balance is converted.
func (s *giftCardService) ConvertToGiftCard(ctx context.Context, caller Caller, req models.ConvertGiftCardRequest) (*models.ConvertResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if req.UserID == "" || req.AmazonEmail == "" {
		return nil, NewError(codes.InvalidArgument, "User ID and Amazon email are required")
	}
	var requested float64
	if req.Amount != nil && *req.Amount != 0 {
		requested = *req.Amount
		if err := validateCardAmount(requested); err != nil {
			return nil, err
		}
	}
	if caller.UID != req.UserID {
		return nil, NewError(codes.PermissionDenied, "Users can only request gift cards for themselves")
	}

	userEmail := s.contactEmail(ctx, req.UserID)
	var declined *models.ConvertResult
	conv, err := s.cards.ConvertRewards(ctx, req.UserID, func(stats *models.RewardStats, credits []*models.RewardCredit) (*models.RewardConversion, error) {
		declined = nil
		balance := stats.CurrentBalance
		amount := requested
		switch {
		case amount > 0 && balance < amount:
			declined = &models.ConvertResult{
				Message:          fmt.Sprintf("Balance %g TL is less than requested amount %g TL", balance, amount),
				RemainingBalance: balance,
			}
			return nil, nil
		case amount == 0 && balance < GiftCardValue:
			declined = &models.ConvertResult{
				Message:          fmt.Sprintf("Balance %g TL is below 100 TL threshold", balance),
				RemainingBalance: balance,
			}
			return nil, nil
		case amount == 0:
			amount = math.Floor(balance/GiftCardValue) * GiftCardValue
		}
		return s.planConversion(req.UserID, userEmail, req.AmazonEmail, stats, credits, amount), nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "User stats not found")
		}
		return nil, AsError("Convert", err)
	}
	if declined != nil {
		return declined, nil
	}

	n := len(conv.Cards)
	s.logger.Info("Gift card requests created from rewards",
		zap.String("user_id", req.UserID),
		zap.Int("gift_cards", n),
		zap.Float64("converted", conv.TotalConverted),
		zap.Float64("remaining", conv.Stats.CurrentBalance))
	return &models.ConvertResult{
		Success:          true,
		Message:          fmt.Sprintf("Successfully created %d gift card request(s)", n),
		GiftCardsCreated: n,
		TotalConverted:   conv.TotalConverted,
		RemainingBalance: conv.Stats.CurrentBalance,
	}, nil
}

// planConversion builds the cards for amount and assigns the oldest credits to
// them. A credit that only partly fits is reduced and stays accumulated.
func (s *giftCardService) planConversion(userID, userEmail, recipient string, stats *models.RewardStats, credits []*models.RewardCredit, amount float64) *models.RewardConversion {
	now := s.now().UTC()
	count := int(amount / GiftCardValue)
	total := float64(count) * GiftCardValue

	conv := &models.RewardConversion{TotalConverted: total}
	for i := 0; i < count; i++ {
		card := s.newCard(userID, recipient, "", GiftCardValue, 0, now)
		conv.Cards = append(conv.Cards, card)
		conv.Requests = append(conv.Requests, s.newRequest(card, userEmail, ""))
	}

	taken, cardTotal, idx := 0.0, 0.0, 0
	for _, c := range credits {
		if taken >= total {
			break
		}
		take, partial := c.Amount, false
		if taken+take > total {
			take, partial = total-taken, true
		}
		if cardTotal >= GiftCardValue && idx < count-1 {
			idx++
			cardTotal = 0
		}
		card := conv.Cards[idx]
		if partial {
			conv.Credits = append(conv.Credits, models.CreditChange{CreditID: c.ID, Partial: true, NewAmount: c.Amount - take})
		} else {
			conv.Credits = append(conv.Credits, models.CreditChange{CreditID: c.ID, GiftCardID: card.ID})
			card.CreditIDs = append(card.CreditIDs, c.ID)
		}
		cardTotal += take
		taken += take
	}

	conv.Stats = models.RewardStats{
		CurrentBalance:  stats.CurrentBalance - total,
		TotalConverted:  stats.TotalConverted + total,
		TotalGiftCards:  stats.TotalGiftCards + count,
		LastConvertedAt: now,
		UpdatedAt:       now,
	}
	return conv
}

// CreateRequestFromPoints records cards the app already paid for with points.
func (s *giftCardService) CreateRequestFromPoints(ctx context.Context, caller Caller, req models.GiftCardFromPointsRequest) (*models.GiftCardRequestResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if req.UserID == "" || req.AmazonEmail == "" || req.Amount == 0 || req.PointsSpent == 0 {
		return nil, NewError(codes.InvalidArgument, "User ID, Amazon email, amount, and pointsSpent are required")
	}
	if err := validateCardAmount(req.Amount); err != nil {
		return nil, err
	}
	if caller.UID != req.UserID {
		return nil, NewError(codes.PermissionDenied, "Users can only request gift cards for themselves")
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = "amazon"
	}

	userEmail := s.contactEmail(ctx, req.UserID)
	now := s.now().UTC()
	count := int(req.Amount / GiftCardValue)
	perCard := req.PointsSpent / float64(count)

	issue := &models.GiftCardIssue{}
	for i := 0; i < count; i++ {
		card := s.newCard(req.UserID, req.AmazonEmail, provider, GiftCardValue, perCard, now)
		issue.Cards = append(issue.Cards, card)
		issue.Requests = append(issue.Requests, s.newRequest(card, userEmail, req.PhoneNumber))
	}
	if err := s.cards.Issue(ctx, req.UserID, issue); err != nil {
		return nil, Internal("Create gift card request", err)
	}

	s.logger.Info("Gift card requests created from points",
		zap.String("user_id", req.UserID),
		zap.String("provider", provider),
		zap.Int("gift_cards", count),
		zap.Float64("points_spent", req.PointsSpent))
	return &models.GiftCardRequestResult{
		Success:          true,
		Message:          fmt.Sprintf("Successfully created %d gift card request(s)", count),
		GiftCardsCreated: count,
		PointsSpent:      req.PointsSpent,
	}, nil
}

// RedeemFromClaim issues the cards of a claim and debits their price in the
// same transaction.
func (s *giftCardService) RedeemFromClaim(ctx context.Context, caller Caller, claim models.GiftCardClaim, supportRequestID string) (*models.GiftCardRequestResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if claim.Quantity <= 0 || claim.Amount <= 0 {
		return nil, NewError(codes.InvalidArgument, "Gift card claim is empty")
	}
	if claim.Quantity > MaxCardsPerClaim {
		return nil, Errorf(codes.InvalidArgument, "At most %d gift cards can be requested at once", MaxCardsPerClaim)
	}
	userEmail := s.contactEmail(ctx, caller.UID)
	recipient := claim.Email
	if recipient == "" {
		recipient = orDefault(userEmail, caller.Email)
	}
	if recipient == "" || recipient == "N/A" {
		return nil, NewError(codes.InvalidArgument, "Gift card email not found")
	}

	now := s.now().UTC()
	perCard := float64(ClaimPoints(models.GiftCardClaim{Amount: claim.Amount, Quantity: 1}))
	total := ClaimPoints(claim)
	issue := &models.GiftCardIssue{}
	for i := 0; i < claim.Quantity; i++ {
		card := s.newCard(caller.UID, recipient, claim.Provider, claim.Amount, perCard, now)
		issue.Cards = append(issue.Cards, card)
		issue.Requests = append(issue.Requests, s.newRequest(card, userEmail, claim.PhoneNumber))
	}
	var ref *string
	if supportRequestID != "" {
		ref = &supportRequestID
	}
	issue.Debit = &models.PointTransaction{
		ID:          s.newID(),
		UserID:      caller.UID,
		Points:      -total,
		Activity:    models.ActivityRedemption,
		ReferenceID: ref,
		Description: fmt.Sprintf("%s Hediye Kartı (%g TL) - Destek Talebi", claim.Provider, claim.Amount*float64(claim.Quantity)),
		EarnedAt:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.cards.Issue(ctx, caller.UID, issue); err != nil {
		if errors.Is(err, db.ErrInsufficientPoints) {
			return nil, Errorf(codes.FailedPrecondition, "Insufficient points: %d required", total)
		}
		return nil, Internal("Create gift card request", err)
	}
	s.logger.Info("Gift card claim redeemed",
		zap.String("user_id", caller.UID),
		zap.String("provider", claim.Provider),
		zap.Int("quantity", claim.Quantity),
		zap.Int("points", total))
	return &models.GiftCardRequestResult{
		Success:          true,
		Message:          fmt.Sprintf("Successfully created %d gift card request(s)", claim.Quantity),
		GiftCardsCreated: claim.Quantity,
		PointsSpent:      float64(total),
	}, nil
}

// NotifySent marks a card as sent, stores its sealed claim code and pushes a
// notification to the owner's device.
func (s *giftCardService) NotifySent(ctx context.Context, caller Caller, req models.NotifyGiftCardRequest) (*models.NotifyResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if req.UserID == "" || req.GiftCardID == "" {
		return nil, NewError(codes.InvalidArgument, "User ID and Gift Card ID are required")
	}
	if err := requireAdmin(ctx, s.admins, caller, "Only admins can mark gift cards as sent"); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "User not found")
		}
		return nil, Internal("Send notification", err)
	}

	var sealed *string
	if code := strings.TrimSpace(req.ClaimCode); code != "" {
		v, err := s.sealer.Seal(code)
		if err != nil {
			return nil, Internal("Seal claim code", err)
		}
		sealed = &v
	}

	now := s.now().UTC()
	card, err := s.cards.MarkSent(ctx, req.UserID, req.GiftCardID, func(c *models.GiftCard) error {
		if c.Status == models.GiftCardRedeemed {
			return NewError(codes.FailedPrecondition, "Gift card already redeemed")
		}
		c.Status = models.GiftCardSent
		c.SentAt = &now
		c.UpdatedAt = now
		if sealed != nil {
			c.ClaimCode = sealed
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "Gift card not found")
		}
		return nil, AsError("Send notification", err)
	}
	recordAudit(ctx, s.audit, s.logger, caller, ActionGiftCardSent, "gift_card", card.ID, map[string]interface{}{
		"user_id": req.UserID,
		"amount":  card.Amount,
	})

	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = orDefault(card.Provider, "amazon")
	}
	amount := req.Amount
	if amount == 0 {
		amount = card.Amount
	}

	token := user.PushToken()
	if token == "" || s.sender == nil {
		s.logger.Info("No FCM token found for user, skipping notification", zap.String("user_id", req.UserID))
		return &models.NotifyResult{Success: false, Message: "No FCM token found"}, nil
	}
	id, err := s.sender.Send(ctx, notify.GiftCardReady(token, card.ID, provider, amount))
	if err != nil {
		return nil, Internal("Send notification", err)
	}
	s.logger.Info("Push notification sent",
		zap.String("user_id", req.UserID),
		zap.String("gift_card_id", card.ID),
		zap.String("message_id", id))
	return &models.NotifyResult{Success: true, MessageID: id}, nil
}

// Redeem moves the caller's sent card to redeemed and reveals its claim code.
func (s *giftCardService) Redeem(ctx context.Context, caller Caller, giftCardID string) (*models.RedeemResult, error) {
	if err := requireAuth(caller); err != nil {
		return nil, err
	}
	if strings.TrimSpace(giftCardID) == "" {
		return nil, NewError(codes.InvalidArgument, "Gift card ID is required")
	}

	now := s.now().UTC()
	card, err := s.cards.Update(ctx, caller.UID, giftCardID, func(c *models.GiftCard) error {
		switch c.Status {
		case models.GiftCardSent:
		case models.GiftCardRedeemed:
			return NewError(codes.FailedPrecondition, "Gift card already redeemed")
		default:
			return NewError(codes.FailedPrecondition, "Gift card has not been sent yet")
		}
		c.Status = models.GiftCardRedeemed
		c.RedeemedAt = &now
		c.UpdatedAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, NewError(codes.NotFound, "Gift card not found")
		}
		return nil, AsError("Redeem gift card", err)
	}

	res := &models.RedeemResult{
		Success:    true,
		GiftCardID: card.ID,
		Amount:     card.Amount,
		Provider:   orDefault(card.Provider, "amazon"),
	}
	if card.ClaimCode != nil && *card.ClaimCode != "" {
		code, err := s.sealer.Open(*card.ClaimCode)
		if err != nil {
			return nil, Internal("Open claim code", err)
		}
		res.ClaimCode = code
	}
	return res, nil
}
