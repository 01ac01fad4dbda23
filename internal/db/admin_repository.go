package db

import (
	"context"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
)

const (
	adminsCollection = "admins"
	adminListDoc     = "admin_list"
	quotaBypassDoc   = "quota_bypass"
)

type firestoreAdminRepository struct {
	client *firestore.Client
}

func NewFirestoreAdminRepository(client *firestore.Client) AdminRepository {
	return &firestoreAdminRepository{client: client}
}

type uidList struct {
	UserIDs []string `firestore:"userIds"`
}

func (r *firestoreAdminRepository) readList(ctx context.Context, doc string) ([]string, error) {
	snap, err := r.client.Collection(adminsCollection).Doc(doc).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read admins/%s: %w", doc, err)
	}
	var list uidList
	if err := snap.DataTo(&list); err != nil {
		return nil, fmt.Errorf("failed to decode admins/%s: %w", doc, err)
	}
	return list.UserIDs, nil
}

func (r *firestoreAdminRepository) ListAdmins(ctx context.Context) ([]string, error) {
	return r.readList(ctx, adminListDoc)
}

func (r *firestoreAdminRepository) ListQuotaBypass(ctx context.Context) ([]string, error) {
	return r.readList(ctx, quotaBypassDoc)
}

func (r *firestoreAdminRepository) AddAdmin(ctx context.Context, userID string, allow func(current []string) error) (bool, error) {
	ref := r.client.Collection(adminsCollection).Doc(adminListDoc)
	var added bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		added = false
		var list uidList
		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			if err := snap.DataTo(&list); err != nil {
				return err
			}
		case !isNotFound(err):
			return err
		}
		if err := allow(list.UserIDs); err != nil {
			return err
		}
		if slices.Contains(list.UserIDs, userID) {
			return nil
		}
		added = true
		return tx.Set(ref, map[string]interface{}{
			"userIds":   append(list.UserIDs, userID),
			"updatedAt": firestore.ServerTimestamp,
		}, firestore.MergeAll)
	})
	if err != nil {
		return false, fmt.Errorf("add admin '%s': %w", userID, err)
	}
	return added, nil
}
