package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"qanta-backend-go/internal/models"
)

const auditLogsCollection = "audit_logs"

type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates a new instance of firestoreAuditRepository.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

// Create appends an entry to audit_logs. Timestamp is set by the server.
func (r *firestoreAuditRepository) Create(ctx context.Context, logEntry models.AuditLog) error {
	if _, _, err := r.client.Collection(auditLogsCollection).Add(ctx, logEntry); err != nil {
		return fmt.Errorf("failed to create audit log for action '%s': %w", logEntry.Action, err)
	}
	return nil
}
