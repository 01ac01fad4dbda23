package db

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInsufficientPoints is returned when a debit would make a point balance negative.
var ErrInsufficientPoints = errors.New("insufficient points")

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
