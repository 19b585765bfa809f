package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/filterkeeper/internal/store"
	"github.com/solatis/filterkeeper/internal/types"
)

// toStatus maps store errors to gRPC status codes.
// Unknown conditions map to NOT_FOUND.
// Invalid names map to INVALID_ARGUMENT.
// Context timeouts map to DEADLINE_EXCEEDED.
// Database errors map to UNAVAILABLE.
func toStatus(err error) error {
	switch {
	case errors.Is(err, types.ErrConditionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, store.ErrInvalidName):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}
