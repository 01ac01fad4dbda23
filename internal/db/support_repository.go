package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const supportRequestsCollection = "support_requests"

type firestoreSupportRepository struct {
	client *firestore.Client
}

func NewFirestoreSupportRepository(client *firestore.Client) SupportRepository {
	return &firestoreSupportRepository{client: client}
}

// Create stores req with a generated document ID, which is also written to
// the id field.
func (r *firestoreSupportRepository) Create(ctx context.Context, req *models.SupportRequest) (string, error) {
	ref := r.client.Collection(supportRequestsCollection).NewDoc()
	req.ID = ref.ID
	if _, err := ref.Create(ctx, req); err != nil {
		return "", fmt.Errorf("failed to create support request: %w", err)
	}
	return ref.ID, nil
}

func (r *firestoreSupportRepository) GetByID(ctx context.Context, requestID string) (*models.SupportRequest, error) {
	snap, err := r.client.Collection(supportRequestsCollection).Doc(requestID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("support request '%s' not found: %w", requestID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get support request '%s': %w", requestID, err)
	}
	return decodeSupportRequest(snap)
}

func (r *firestoreSupportRepository) Update(ctx context.Context, requestID string, fn func(*models.SupportRequest) error) (*models.SupportRequest, error) {
	ref := r.client.Collection(supportRequestsCollection).Doc(requestID)
	var out *models.SupportRequest
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("support request '%s': %w", requestID, ErrNotFound)
			}
			return err
		}
		req, err := decodeSupportRequest(snap)
		if err != nil {
			return err
		}
		if err := fn(req); err != nil {
			return err
		}
		out = req
		return tx.Set(ref, req)
	})
	if err != nil {
		return nil, fmt.Errorf("update support request '%s': %w", requestID, err)
	}
	return out, nil
}

func decodeSupportRequest(snap *firestore.DocumentSnapshot) (*models.SupportRequest, error) {
	var req models.SupportRequest
	if err := snap.DataTo(&req); err != nil {
		return nil, fmt.Errorf("failed to decode support request '%s': %w", snap.Ref.ID, err)
	}
	req.ID = snap.Ref.ID
	return &req, nil
}
