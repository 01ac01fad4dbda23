package db

import (
	"context"
	"fmt"
	"sync/atomic"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
)

const transactionsCollection = "transactions"

// isoMillis is the layout the app stores transaction_date in.
const isoMillis = "2006-01-02T15:04:05.000Z"

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) TransactionRepository {
	return &firestoreTransactionRepository{client: client}
}

// DeleteMatching deletes every matching transaction in batches of
// maxBatchWrites committed in parallel. The count of deleted documents is
// returned even when a batch fails.
func (r *firestoreTransactionRepository) DeleteMatching(ctx context.Context, userID string, q TransactionQuery) (int, error) {
	query := r.client.Collection(usersCollection).Doc(userID).Collection(transactionsCollection).Query
	if !q.Since.IsZero() {
		query = query.Where("transaction_date", ">=", q.Since.UTC().Format(isoMillis))
	}
	if q.Type != "" {
		query = query.Where("type", "==", q.Type)
	}
	if q.Category != "" {
		query = query.Where("category", "==", q.Category)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to query transactions for user '%s': %w", userID, err)
	}

	var deleted atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(docs); start += maxBatchWrites {
		chunk := docs[start:min(start+maxBatchWrites, len(docs))]
		g.Go(func() error {
			batch := r.client.Batch()
			for _, doc := range chunk {
				batch.Delete(doc.Ref)
			}
			if _, err := batch.Commit(gctx); err != nil {
				return err
			}
			deleted.Add(int64(len(chunk)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(deleted.Load()), fmt.Errorf("failed to delete transactions for user '%s': %w", userID, err)
	}
	return int(deleted.Load()), nil
}
