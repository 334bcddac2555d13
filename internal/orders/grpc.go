package orders

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/authz"
	"github.com/nemanja87/master-thesis-bench-runner/internal/auth/jwt"
	"github.com/nemanja87/master-thesis-bench-runner/internal/orderspb"
	"github.com/nemanja87/master-thesis-bench-runner/internal/secprofile"
	bencherrors "github.com/nemanja87/master-thesis-bench-runner/pkg/errors"
)

// GRPCServer serves orders.OrderService. The authorization decision runs
// inside the handler so gRPC and REST apply the identical gate.
type GRPCServer struct {
	svc     *Service
	profile secprofile.Profile
	logger  *slog.Logger
}

// NewGRPCServer creates the gRPC handler.
func NewGRPCServer(svc *Service, profile secprofile.Profile, logger *slog.Logger) *GRPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCServer{svc: svc, profile: profile, logger: logger}
}

// Create implements orders.OrderService/Create under the orders.write
// scope.
func (g *GRPCServer) Create(ctx context.Context, in *orderspb.OrderCreateRequest) (*orderspb.OrderCreateResponse, error) {
	claims, _ := jwt.ClaimsFromContext(ctx)
	if err := authz.Check(g.profile, claims, "orders.write"); err != nil {
		if errors.Is(err, bencherrors.ErrForbidden) {
			return nil, status.Error(codes.PermissionDenied, "scope orders.write required")
		}
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	if in.CustomerID == "" {
		return nil, status.Error(codes.InvalidArgument, "customer_id is required")
	}

	order := g.svc.Create(in.CustomerID, in.ItemSkus, in.TotalAmount, incomingAuthorization(ctx))
	return &orderspb.OrderCreateResponse{OrderID: order.ID, Accepted: true}, nil
}

// incomingAuthorization recovers the raw authorization header so the
// reservation call can forward it.
func incomingAuthorization(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get("authorization"); len(values) > 0 {
		return values[0]
	}
	return ""
}
