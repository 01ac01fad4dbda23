package models

import "time"

// AuditLog records an administrative action.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	Actor      string                 `json:"actor" firestore:"actor"`   // uid of the admin
	Action     string                 `json:"action" firestore:"action"` // e.g. "ADMIN_ADD_POINTS", "ADMIN_ADD"
	TargetType string                 `json:"targetType,omitempty" firestore:"target_type,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"target_id,omitempty"`
	IPAddress  string                 `json:"ipAddress,omitempty" firestore:"ip,omitempty"`
	UserAgent  string                 `json:"userAgent,omitempty" firestore:"user_agent,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
