package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const (
	rewardStatsCollection   = "amazon_reward_stats"
	rewardStatsDoc          = "stats"
	rewardCreditsCollection = "amazon_reward_credits"
	giftCardsCollection     = "amazon_gift_cards"
	adminRequestsCollection = "admin_requests"
)

type firestoreGiftCardRepository struct {
	client *firestore.Client
}

func NewFirestoreGiftCardRepository(client *firestore.Client) GiftCardRepository {
	return &firestoreGiftCardRepository{client: client}
}

func (r *firestoreGiftCardRepository) userDoc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *firestoreGiftCardRepository) cardRef(userID, giftCardID string) *firestore.DocumentRef {
	return r.userDoc(userID).Collection(giftCardsCollection).Doc(giftCardID)
}

func (r *firestoreGiftCardRepository) ConvertRewards(ctx context.Context, userID string, plan func(*models.RewardStats, []*models.RewardCredit) (*models.RewardConversion, error)) (*models.RewardConversion, error) {
	statsRef := r.userDoc(userID).Collection(rewardStatsCollection).Doc(rewardStatsDoc)
	creditsQuery := r.userDoc(userID).Collection(rewardCreditsCollection).
		Where("status", "==", models.CreditAccumulated).
		OrderBy("earned_at", firestore.Asc)

	var out *models.RewardConversion
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		out = nil
		snap, err := tx.Get(statsRef)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		var stats models.RewardStats
		if err := snap.DataTo(&stats); err != nil {
			return err
		}

		docs, err := tx.Documents(creditsQuery).GetAll()
		if err != nil {
			return err
		}
		credits := make([]*models.RewardCredit, 0, len(docs))
		for _, doc := range docs {
			var c models.RewardCredit
			if err := doc.DataTo(&c); err != nil {
				return fmt.Errorf("failed to decode reward credit '%s': %w", doc.Ref.ID, err)
			}
			c.ID = doc.Ref.ID
			credits = append(credits, &c)
		}

		conv, err := plan(&stats, credits)
		if err != nil || conv == nil {
			return err
		}

		if err := r.writeCards(tx, userID, conv.Cards, conv.Requests); err != nil {
			return err
		}
		now := conv.Stats.UpdatedAt
		for _, ch := range conv.Credits {
			ref := r.userDoc(userID).Collection(rewardCreditsCollection).Doc(ch.CreditID)
			fields := map[string]interface{}{"updated_at": now}
			if ch.Partial {
				fields["amount"] = ch.NewAmount
			} else {
				fields["status"] = models.CreditConverted
				fields["gift_card_id"] = ch.GiftCardID
				fields["converted_at"] = now
			}
			if err := tx.Set(ref, fields, firestore.MergeAll); err != nil {
				return err
			}
		}
		if err := tx.Set(statsRef, map[string]interface{}{
			"current_balance":   conv.Stats.CurrentBalance,
			"total_converted":   conv.Stats.TotalConverted,
			"total_gift_cards":  conv.Stats.TotalGiftCards,
			"last_converted_at": conv.Stats.LastConvertedAt,
			"updated_at":        now,
		}, firestore.MergeAll); err != nil {
			return err
		}
		out = conv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reward conversion for user '%s': %w", userID, err)
	}
	return out, nil
}

func (r *firestoreGiftCardRepository) Issue(ctx context.Context, userID string, issue *models.GiftCardIssue) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var balance *models.PointBalance
		if issue.Debit != nil {
			var err error
			if balance, err = readBalance(tx, r.client, userID); err != nil {
				return err
			}
			if balance.TotalPoints+issue.Debit.Points < 0 {
				return ErrInsufficientPoints
			}
		}
		if err := r.writeCards(tx, userID, issue.Cards, issue.Requests); err != nil {
			return err
		}
		if issue.Debit != nil {
			return writeLedgerEntry(tx, r.client, balance, issue.Debit)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gift card issue for user '%s': %w", userID, err)
	}
	return nil
}

func (r *firestoreGiftCardRepository) writeCards(tx *firestore.Transaction, userID string, cards []*models.GiftCard, requests []*models.AdminRequest) error {
	for _, card := range cards {
		if err := tx.Set(r.cardRef(userID, card.ID), card); err != nil {
			return err
		}
	}
	for _, req := range requests {
		ref := r.client.Collection(adminRequestsCollection).Doc(req.ID)
		if err := tx.Set(ref, req); err != nil {
			return err
		}
	}
	return nil
}

func (r *firestoreGiftCardRepository) Get(ctx context.Context, userID, giftCardID string) (*models.GiftCard, error) {
	snap, err := r.cardRef(userID, giftCardID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("gift card '%s' not found: %w", giftCardID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get gift card '%s': %w", giftCardID, err)
	}
	return decodeGiftCard(snap)
}

func (r *firestoreGiftCardRepository) MarkSent(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error) {
	return r.update(ctx, userID, giftCardID, fn, true)
}

func (r *firestoreGiftCardRepository) Update(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error) (*models.GiftCard, error) {
	return r.update(ctx, userID, giftCardID, fn, false)
}

func (r *firestoreGiftCardRepository) update(ctx context.Context, userID, giftCardID string, fn func(*models.GiftCard) error, completeRequests bool) (*models.GiftCard, error) {
	ref := r.cardRef(userID, giftCardID)
	requestsQuery := r.client.Collection(adminRequestsCollection).
		Where("gift_card_id", "==", giftCardID).
		Where("status", "==", models.AdminRequestPending)

	var out *models.GiftCard
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("gift card '%s': %w", giftCardID, ErrNotFound)
			}
			return err
		}
		card, err := decodeGiftCard(snap)
		if err != nil {
			return err
		}
		var pending []*firestore.DocumentSnapshot
		if completeRequests {
			if pending, err = tx.Documents(requestsQuery).GetAll(); err != nil {
				return err
			}
		}

		if err := fn(card); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"status":     card.Status,
			"updated_at": card.UpdatedAt,
		}
		if card.ClaimCode != nil {
			fields["amazon_claim_code"] = *card.ClaimCode
		}
		if card.SentAt != nil {
			fields["sent_at"] = *card.SentAt
		}
		if card.RedeemedAt != nil {
			fields["redeemed_at"] = *card.RedeemedAt
		}
		if err := tx.Set(ref, fields, firestore.MergeAll); err != nil {
			return err
		}
		for _, doc := range pending {
			if err := tx.Set(doc.Ref, map[string]interface{}{
				"status":     models.AdminRequestCompleted,
				"updated_at": card.UpdatedAt,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}
		out = card
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gift card '%s' for user '%s': %w", giftCardID, userID, err)
	}
	return out, nil
}

func decodeGiftCard(snap *firestore.DocumentSnapshot) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := snap.DataTo(&card); err != nil {
		return nil, fmt.Errorf("failed to decode gift card '%s': %w", snap.Ref.ID, err)
	}
	card.ID = snap.Ref.ID
	return &card, nil
}
