package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"qanta-backend-go/internal/models"
)

const (
	usersCollection = "users"
	// maxBatchWrites is the Firestore limit of writes per batch.
	maxBatchWrites = 500
)

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document. user.ID (the Firebase Auth UID) is the document ID.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s' already exists: %w", user.ID, err)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its ID (Firebase Auth UID).
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return decodeUser(docSnap)
}

// Merge writes fields into the user document with MergeAll, so fields not
// named are left as they are.
func (r *firestoreUserRepository) Merge(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" {
		return errors.New("user ID cannot be empty for Merge operation")
	}
	fields["updatedAt"] = firestore.ServerTimestamp
	if _, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

// FindByReferralCode returns the user owning code.
func (r *firestoreUserRepository) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	iter := r.client.Collection(usersCollection).Where("referral_code", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("referral code '%s': %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral code '%s': %w", code, err)
	}
	return decodeUser(doc)
}

// ListAll returns every user profile. Documents that fail to decode are skipped.
func (r *firestoreUserRepository) ListAll(ctx context.Context) ([]*models.User, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []*models.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}
		user, err := decodeUser(doc)
		if err != nil {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// SetReferralCodes commits the codes in batches of maxBatchWrites. Batches are
// committed concurrently; a failed batch counts all of its documents as failed.
func (r *firestoreUserRepository) SetReferralCodes(ctx context.Context, codes map[string]string) (int, int) {
	ids := make([]string, 0, len(codes))
	for id := range codes {
		ids = append(ids, id)
	}

	var (
		mu      sync.Mutex
		written int
		failed  int
		g       errgroup.Group
	)
	g.SetLimit(4)
	for start := 0; start < len(ids); start += maxBatchWrites {
		chunk := ids[start:min(start+maxBatchWrites, len(ids))]
		g.Go(func() error {
			batch := r.client.Batch()
			for _, id := range chunk {
				batch.Set(r.client.Collection(usersCollection).Doc(id), map[string]interface{}{
					"referral_code": codes[id],
					"updatedAt":     firestore.ServerTimestamp,
				}, firestore.MergeAll)
			}
			_, err := batch.Commit(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed += len(chunk)
				return nil
			}
			written += len(chunk)
			return nil
		})
	}
	_ = g.Wait()
	return written, failed
}

func decodeUser(doc *firestore.DocumentSnapshot) (*models.User, error) {
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", doc.Ref.ID, err)
	}
	user.ID = doc.Ref.ID
	return &user, nil
}
