package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const (
	referralsCollection     = "referrals"
	referralStatsCollection = "referral_stats"
	referralStatsDoc        = "stats"
)

type firestoreReferralRepository struct {
	client *firestore.Client
}

func NewFirestoreReferralRepository(client *firestore.Client) ReferralRepository {
	return &firestoreReferralRepository{client: client}
}

func (r *firestoreReferralRepository) ProcessReferral(ctx context.Context, referredID, referrerID string, decide func(models.ReferralState) (*models.ReferralPlan, error)) (*models.ReferralOutcome, error) {
	users := r.client.Collection(usersCollection)
	referredRef := users.Doc(referredID)
	statsRef := users.Doc(referrerID).Collection(referralStatsCollection).Doc(referralStatsDoc)
	recordsQuery := users.Doc(referrerID).Collection(referralsCollection).
		Where("referred_user_id", "==", referredID).Limit(1)

	var outcome *models.ReferralOutcome
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		outcome = nil

		var state models.ReferralState
		snap, err := tx.Get(referredRef)
		switch {
		case err == nil:
			if state.Referred, err = decodeUser(snap); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}

		var stats models.ReferralStats
		snap, err = tx.Get(statsRef)
		switch {
		case err == nil:
			if err := snap.DataTo(&stats); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}
		state.ReferrerCount = stats.ReferralCount

		existing, err := tx.Documents(recordsQuery).GetAll()
		if err != nil {
			return err
		}
		state.AlreadyRecorded = len(existing) > 0

		referrerBalance, err := readBalance(tx, r.client, referrerID)
		if err != nil {
			return err
		}
		referredBalance, err := readBalance(tx, r.client, referredID)
		if err != nil {
			return err
		}

		plan, err := decide(state)
		if err != nil || plan == nil {
			return err
		}

		// Reads are done; everything below writes.
		fields := map[string]interface{}{
			"referred_by":      plan.ReferrerID,
			"referred_by_code": plan.Code,
			"referral_status":  plan.Status,
			"updatedAt":        firestore.ServerTimestamp,
		}
		if plan.OwnCode != "" {
			fields["referral_code"] = plan.OwnCode
		}
		if err := tx.Set(referredRef, fields, firestore.MergeAll); err != nil {
			return err
		}

		out := &models.ReferralOutcome{
			ReferralCount:   stats.ReferralCount,
			ReferrerBalance: referrerBalance.TotalPoints,
			ReferredBalance: referredBalance.TotalPoints,
		}
		if plan.Status != models.ReferralStatusSuccess {
			outcome = out
			return nil
		}

		if plan.Record != nil {
			recordRef := users.Doc(referrerID).Collection(referralsCollection).Doc(plan.Record.ID)
			if err := tx.Set(recordRef, plan.Record); err != nil {
				return err
			}
		}
		out.ReferralCount = stats.ReferralCount + 1
		if err := tx.Set(statsRef, map[string]interface{}{
			"user_id":             referrerID,
			"referral_count":      out.ReferralCount,
			"total_points_earned": stats.TotalPointsEarned + plan.Points,
			"last_referral_at":    plan.Now,
			"updated_at":          plan.Now,
		}, firestore.MergeAll); err != nil {
			return err
		}
		if plan.ReferrerCredit != nil {
			if err := writeLedgerEntry(tx, r.client, referrerBalance, plan.ReferrerCredit); err != nil {
				return err
			}
		}
		if plan.ReferredCredit != nil {
			if err := writeLedgerEntry(tx, r.client, referredBalance, plan.ReferredCredit); err != nil {
				return err
			}
		}
		out.ReferrerBalance = referrerBalance.TotalPoints
		out.ReferredBalance = referredBalance.TotalPoints
		outcome = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("referral of '%s' by '%s': %w", referredID, referrerID, err)
	}
	return outcome, nil
}
