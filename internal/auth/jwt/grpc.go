package jwt

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryServerInterceptor validates the bearer token from incoming metadata
// and attaches the resolved claims to the context. It never rejects by
// itself; the authorization gate in the handler decides, so anonymous
// calls fail there with the proper status code.
func UnaryServerInterceptor(validator *Validator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token := BearerFromMetadata(ctx); token != "" {
			if claims, err := validator.Validate(ctx, token); err == nil {
				ctx = ContextWithClaims(ctx, claims)
			}
		}
		return handler(ctx, req)
	}
}

// BearerFromMetadata returns the bearer token from incoming gRPC metadata,
// or "" when absent or malformed.
func BearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	parts := strings.SplitN(values[0], " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
