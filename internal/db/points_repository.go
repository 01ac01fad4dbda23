package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const (
	pointTransactionsCollection = "point_transactions"
	pointBalanceCollection      = "point_balance"
	pointBalanceDoc             = "balance"
)

type firestorePointsRepository struct {
	client *firestore.Client
}

func NewFirestorePointsRepository(client *firestore.Client) PointsRepository {
	return &firestorePointsRepository{client: client}
}

func (r *firestorePointsRepository) GetBalance(ctx context.Context, userID string) (*models.PointBalance, error) {
	snap, err := balanceRef(r.client, userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return &models.PointBalance{UserID: userID}, nil
		}
		return nil, fmt.Errorf("failed to read point balance for user '%s': %w", userID, err)
	}
	var b models.PointBalance
	if err := snap.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to decode point balance for user '%s': %w", userID, err)
	}
	return &b, nil
}

func (r *firestorePointsRepository) Apply(ctx context.Context, entry *models.PointTransaction) (*models.PointBalance, error) {
	var out *models.PointBalance
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		balance, err := readBalance(tx, r.client, entry.UserID)
		if err != nil {
			return err
		}
		if balance.TotalPoints+entry.Points < 0 {
			return ErrInsufficientPoints
		}
		if err := writeLedgerEntry(tx, r.client, balance, entry); err != nil {
			return err
		}
		out = balance
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("point ledger for user '%s': %w", entry.UserID, err)
	}
	return out, nil
}

func balanceRef(client *firestore.Client, userID string) *firestore.DocumentRef {
	return client.Collection(usersCollection).Doc(userID).Collection(pointBalanceCollection).Doc(pointBalanceDoc)
}

// readBalance reads a balance inside tx. Firestore transactions require every
// read to happen before the first write.
func readBalance(tx *firestore.Transaction, client *firestore.Client, userID string) (*models.PointBalance, error) {
	balance := &models.PointBalance{UserID: userID}
	snap, err := tx.Get(balanceRef(client, userID))
	if err != nil {
		if isNotFound(err) {
			return balance, nil
		}
		return nil, err
	}
	if err := snap.DataTo(balance); err != nil {
		return nil, err
	}
	balance.UserID = userID
	return balance, nil
}

// writeLedgerEntry stores entry and applies it to balance. Balance fields the
// backend does not own are preserved by the merge.
func writeLedgerEntry(tx *firestore.Transaction, client *firestore.Client, balance *models.PointBalance, entry *models.PointTransaction) error {
	ref := client.Collection(usersCollection).Doc(entry.UserID).Collection(pointTransactionsCollection).Doc(entry.ID)
	if err := tx.Set(ref, entry); err != nil {
		return err
	}
	balance.Apply(entry)
	fields := map[string]interface{}{
		"user_id":      balance.UserID,
		"total_points": balance.TotalPoints,
		"total_earned": balance.TotalEarned,
		"total_spent":  balance.TotalSpent,
		"updated_at":   balance.UpdatedAt,
	}
	if entry.Points >= 0 {
		fields["last_earned_at"] = balance.LastEarnedAt
	}
	return tx.Set(balanceRef(client, entry.UserID), fields, firestore.MergeAll)
}
