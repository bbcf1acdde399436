package grpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudpool/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC status codes. Internal errors are
// not echoed to the caller.
func toStatus(err error) error {
	var pie *common.PartsInaccessibleError
	switch {
	case errors.As(err, &pie):
		return status.Error(codes.FailedPrecondition,
			fmt.Sprintf("%d of %d parts are stored on accounts that are no longer linked", pie.Count, pie.Total))
	// Provider-side errors wrap NotFound or Unauthorized too; they must not
	// read as a missing file or a bad session.
	case errors.Is(err, common.ErrTransportFailure):
		return status.Error(codes.Unavailable, "storage provider unavailable")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrNoAccountsLinked):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrUnknownProvider):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrAuthenticationFailed):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, "request failed", "op", op, "error", err)
	} else {
		s.logger.Warn(ctx, "request rejected", "op", op, "error", err)
	}
	return st
}
