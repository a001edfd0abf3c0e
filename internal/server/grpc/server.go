// Package grpcserver exposes the catalog gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/limiter"
	"github.com/and161185/ecoeat/internal/service"
	"github.com/and161185/ecoeat/internal/transport"
)

// Server wires services into gRPC handlers.
type Server struct {
	auth       service.AuthService
	products   service.ProductService
	guestOwner string
}

var _ CatalogServer = (*Server)(nil)

// Option configures Server.
type Option func(*Server)

// WithGuestOwner makes anonymous creations owned by id. An empty id disables guest mode.
func WithGuestOwner(id string) Option {
	return func(s *Server) { s.guestOwner = id }
}

// New constructs a gRPC server with injected services.
func New(auth service.AuthService, products service.ProductService, opts ...Option) *Server {
	s := &Server{auth: auth, products: products}
	for _, o := range opts {
		o(s)
	}
	return s
}

// --- Auth ---

// Register creates a new user account.
func (s *Server) Register(ctx context.Context, req *transport.RegisterRequest) (*transport.RegisterResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty email/password")
	}
	p, err := s.auth.Register(ctx, req.Email, req.Password)
	if err != nil {
		return nil, toStatus("register", err)
	}
	return &transport.RegisterResponse{Principal: p}, nil
}

// Login authenticates a user and returns an access token.
func (s *Server) Login(ctx context.Context, req *transport.LoginRequest) (*transport.LoginResponse, error) {
	if pr, ok := peer.FromContext(ctx); ok && pr.Addr != nil {
		ctx = limiter.WithClient(ctx, pr.Addr.String())
	}
	tok, p, err := s.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnauthorized):
			return nil, status.Error(codes.Unauthenticated, "bad credentials")
		case errors.Is(err, errs.ErrRateLimited):
			return nil, status.Error(codes.ResourceExhausted, "too many attempts, try later")
		}
		return nil, toStatus("login", err)
	}
	return &transport.LoginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, Principal: p}, nil
}

// Me returns the caller's profile.
func (s *Server) Me(ctx context.Context, _ *transport.MeRequest) (*transport.MeResponse, error) {
	cur, ok := PrincipalFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	p, err := s.auth.Profile(ctx, uuid.FromStringOrNil(cur.ID))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, status.Error(codes.Unauthenticated, "unknown user")
		}
		return nil, toStatus("me", err)
	}
	return &transport.MeResponse{Principal: p}, nil
}

// --- Products ---

// ListProducts returns the whole catalog.
func (s *Server) ListProducts(ctx context.Context, _ *transport.ListProductsRequest) (*transport.ListProductsResponse, error) {
	ps, err := s.products.FetchAll(ctx)
	if err != nil {
		return nil, toStatus("list products", err)
	}
	return &transport.ListProductsResponse{Products: transport.FromProducts(ps)}, nil
}

// ListDonations returns the caller's donations, newest first. An empty owner_id means the caller.
func (s *Server) ListDonations(ctx context.Context, req *transport.ListDonationsRequest) (*transport.ListDonationsResponse, error) {
	cur, ok := PrincipalFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	owner := req.OwnerID
	if owner == "" {
		owner = cur.ID
	}
	if owner != cur.ID {
		return nil, status.Error(codes.PermissionDenied, "foreign donations")
	}
	ps, err := s.products.FetchDonations(ctx, owner)
	if err != nil {
		return nil, toStatus("list donations", err)
	}
	return &transport.ListDonationsResponse{Products: transport.FromProducts(ps)}, nil
}

// GetProduct returns a single product by id.
func (s *Server) GetProduct(ctx context.Context, req *transport.GetProductRequest) (*transport.GetProductResponse, error) {
	id, err := uuid.FromString(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, toStatus("get product", err)
	}
	return &transport.GetProductResponse{Product: transport.FromProduct(*p)}, nil
}

// CreateProduct stores a product owned by the caller, or by the guest owner when anonymous.
func (s *Server) CreateProduct(ctx context.Context, req *transport.CreateProductRequest) (*transport.CreateProductResponse, error) {
	in, err := req.Product.Request()
	if err != nil {
		return nil, toStatus("create product", err)
	}
	p, err := s.products.Create(ctx, in, s.ownerFor(ctx))
	if err != nil {
		return nil, toStatus("create product", err)
	}
	return &transport.CreateProductResponse{Product: transport.FromProduct(p)}, nil
}

// UpdateProduct merges a partial change into a product.
func (s *Server) UpdateProduct(ctx context.Context, req *transport.UpdateProductRequest) (*transport.UpdateProductResponse, error) {
	id, err := uuid.FromString(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	patch, err := req.Patch.Model()
	if err != nil {
		return nil, toStatus("update product", err)
	}
	if err := s.products.Update(ctx, id, patch); err != nil {
		return nil, toStatus("update product", err)
	}
	return &transport.UpdateProductResponse{}, nil
}

// DeleteProduct removes a product. Deleting a missing product succeeds.
func (s *Server) DeleteProduct(ctx context.Context, req *transport.DeleteProductRequest) (*transport.DeleteProductResponse, error) {
	id, err := uuid.FromString(req.ID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad id")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return nil, toStatus("delete product", err)
	}
	return &transport.DeleteProductResponse{}, nil
}

func (s *Server) ownerFor(ctx context.Context) string {
	if p, ok := PrincipalFromCtx(ctx); ok {
		return p.ID
	}
	return s.guestOwner
}

// toStatus maps service errors onto gRPC codes. Internal causes are not leaked.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, op+": canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, op+": deadline exceeded")
	default:
		return status.Error(codes.Internal, op+": internal")
	}
}
