package middleware

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// MetadataTokenExtractor reads a bearer token from the "authorization"
// entry of the incoming gRPC metadata. No entry yields an empty token.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", nil
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}

	return parts[1], nil
}

// UnaryServerInterceptor authenticates unary calls with the token in the
// incoming metadata. The verified claims are available to the handler
// through ClaimsFromContext.
func (m *Middleware) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := m.authenticateRPC(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streaming calls.
func (m *Middleware) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := m.authenticateRPC(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

func (m *Middleware) authenticateRPC(ctx context.Context, method string) (context.Context, error) {
	token, err := MetadataTokenExtractor(ctx)
	if err != nil {
		m.logger.Warn("failed to extract token from metadata", "error", err, "method", method)
		return nil, StatusFromError(err)
	}

	claims, skip, err := m.authorize(ctx, token, "method", method)
	if err != nil {
		return nil, StatusFromError(err)
	}
	if skip || claims == nil {
		return ctx, nil
	}

	return WithClaims(ctx, claims), nil
}

// StatusFromError maps a middleware error to a gRPC status error:
//   - Unauthenticated for a missing, malformed or invalid token
//   - Unavailable when the signing keys could not be obtained
//   - PermissionDenied for a missing scope
//   - Internal otherwise
func StatusFromError(err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return status.Error(codes.Unauthenticated, "access token missing")
	case errors.Is(err, core.ErrKeyUnavailable):
		return status.Error(codes.Unavailable, "the token could not be verified right now")
	case errors.Is(err, ErrTokenInvalid):
		return status.Errorf(codes.Unauthenticated, "access token invalid: %s", core.CodeOf(err))
	case errors.Is(err, ErrInsufficientScope):
		var se *scopeError
		if errors.As(err, &se) {
			return status.Errorf(codes.PermissionDenied, "missing scope: %s", strings.Join(se.missing, " "))
		}
		return status.Error(codes.PermissionDenied, "insufficient scope")
	case errors.Is(err, ErrMalformedAuthHeader):
		return status.Error(codes.Unauthenticated, "authorization metadata format must be Bearer {token}")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
