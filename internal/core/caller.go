package core

import (
	"strings"

	"google.golang.org/grpc/codes"
)

// Caller is the authenticated identity of a request, taken from the verified
// Firebase ID token.
type Caller struct {
	UID       string
	Email     string
	Name      string
	Claims    map[string]interface{}
	IP        string
	UserAgent string
}

// Authenticated reports whether the caller carries a uid.
func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.UID) != ""
}

// ClaimBool reads a boolean custom claim.
func (c Caller) ClaimBool(name string) bool {
	v, _ := c.Claims[name].(bool)
	return v
}

func requireAuth(c Caller) error {
	if !c.Authenticated() {
		return NewError(codes.Unauthenticated, "Authentication required")
	}
	return nil
}
