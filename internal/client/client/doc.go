// Package client talks to the CloudPool server.
//
// GRPCClient manages one connection, injects the access token through a
// unary interceptor, refreshes an expired access token once per call when a
// refresh token is known, and maps gRPC status codes to sentinel errors
// callers can match with errors.Is: ErrUnavailable, ErrUnauthorized,
// ErrNotFound, ErrForbidden and ErrFailedPrecondition.
package client
