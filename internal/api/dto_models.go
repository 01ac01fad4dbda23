package api

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// emptyRequest is bound by operations that take no arguments, so that a
// malformed envelope is still rejected.
type emptyRequest struct{}
