package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const accountsCollection = "accounts"

type firestoreAccountRepository struct {
	client *firestore.Client
}

func NewFirestoreAccountRepository(client *firestore.Client) AccountRepository {
	return &firestoreAccountRepository{client: client}
}

// Create stores the account under users/{uid}/accounts with a generated ID.
// The card count check and the write share one transaction, so two concurrent
// requests cannot both pass a limit of n-1 cards.
func (r *firestoreAccountRepository) Create(ctx context.Context, account *models.Account, check func(activeCards int) error) (string, error) {
	accounts := r.client.Collection(usersCollection).Doc(account.UserID).Collection(accountsCollection)
	ref := accounts.NewDoc()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if check != nil {
			docs, err := tx.Documents(accounts.Where("is_active", "==", true)).GetAll()
			if err != nil {
				return err
			}
			cards := 0
			for _, doc := range docs {
				t, _ := doc.Data()["type"].(string)
				if t == models.AccountCredit || t == models.AccountDebit {
					cards++
				}
			}
			if err := check(cards); err != nil {
				return err
			}
		}
		return tx.Create(ref, account)
	})
	if err != nil {
		return "", fmt.Errorf("create account for user '%s': %w", account.UserID, err)
	}
	account.ID = ref.ID
	return ref.ID, nil
}
