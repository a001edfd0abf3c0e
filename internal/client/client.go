// Package client is the remote product store as seen from the device: the catalog
// service reached over gRPC, with status codes mapped back to the error taxonomy.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/ecoeat/internal/errs"
	"github.com/and161185/ecoeat/internal/model"
	"github.com/and161185/ecoeat/internal/transport"
)

// TokenSource supplies the bearer token of the current principal, or "".
type TokenSource interface {
	Token() string
}

// Client implements the catalog store over a gRPC connection.
type Client struct {
	conn   grpc.ClientConnInterface
	tokens TokenSource
}

// New wraps an established connection. tokens may be nil for anonymous use.
func New(conn grpc.ClientConnInterface, tokens TokenSource) *Client {
	return &Client{conn: conn, tokens: tokens}
}

// DialOptions configure Dial.
type DialOptions struct {
	TLS    bool
	CACert string // PEM file; system roots when empty
}

// Dial opens a connection to addr using the JSON codec.
func Dial(addr string, o DialOptions) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if o.TLS {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if o.CACert != "" {
			pem, err := os.ReadFile(o.CACert)
			if err != nil {
				return nil, fmt.Errorf("read ca cert: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, errors.New("ca cert: no certificates")
			}
			cfg.RootCAs = pool
		}
		creds = credentials.NewTLS(cfg)
	}
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(transport.CodecName)),
	)
}

// --- Auth ---

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) (model.Principal, error) {
	var out transport.RegisterResponse
	err := c.invoke(ctx, transport.MethodRegister, &transport.RegisterRequest{Email: email, Password: password}, &out)
	if err != nil {
		return model.Principal{}, classify("register", errs.ErrWrite, err)
	}
	return out.Principal, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, email, password string) (model.Tokens, model.Principal, error) {
	var out transport.LoginResponse
	err := c.invoke(ctx, transport.MethodLogin, &transport.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return model.Tokens{}, model.Principal{}, classify("login", errs.ErrRead, err)
	}
	return model.Tokens{AccessToken: out.AccessToken, ExpiresAt: out.ExpiresAt}, out.Principal, nil
}

// Me returns the signed-in principal as known by the server.
func (c *Client) Me(ctx context.Context) (model.Principal, error) {
	var out transport.MeResponse
	if err := c.invoke(ctx, transport.MethodMe, &transport.MeRequest{}, &out); err != nil {
		return model.Principal{}, classify("me", errs.ErrRead, err)
	}
	return out.Principal, nil
}

// --- Products ---

// Create stores a product. ownerID is not sent: the server derives the owner from
// the token, or uses the guest owner.
func (c *Client) Create(ctx context.Context, req model.ProductRequest, _ string) (model.Product, error) {
	var out transport.CreateProductResponse
	in := &transport.CreateProductRequest{Product: transport.NewProductInput(req)}
	if err := c.invoke(ctx, transport.MethodCreateProduct, in, &out); err != nil {
		return model.Product{}, classify("create product", errs.ErrWrite, err)
	}
	return out.Product.Model(), nil
}

// FetchAll returns the whole catalog.
func (c *Client) FetchAll(ctx context.Context) ([]model.Product, error) {
	var out transport.ListProductsResponse
	if err := c.invoke(ctx, transport.MethodListProducts, &transport.ListProductsRequest{}, &out); err != nil {
		return nil, classify("fetch products", errs.ErrRead, err)
	}
	return transport.ToModels(out.Products), nil
}

// FetchDonations returns the owner's donations, newest first.
func (c *Client) FetchDonations(ctx context.Context, ownerID string) ([]model.Product, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("fetch donations: %w: owner id required", errs.ErrValidation)
	}
	var out transport.ListDonationsResponse
	if err := c.invoke(ctx, transport.MethodListDonations, &transport.ListDonationsRequest{OwnerID: ownerID}, &out); err != nil {
		return nil, classify("fetch donations", errs.ErrRead, err)
	}
	return transport.ToModels(out.Products), nil
}

// Get returns one product.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var out transport.GetProductResponse
	if err := c.invoke(ctx, transport.MethodGetProduct, &transport.GetProductRequest{ID: id.String()}, &out); err != nil {
		return nil, classify("get product", errs.ErrRead, err)
	}
	p := out.Product.Model()
	return &p, nil
}

// Update merges a partial change into a product.
func (c *Client) Update(ctx context.Context, id uuid.UUID, patch model.ProductPatch) error {
	in := &transport.UpdateProductRequest{ID: id.String(), Patch: transport.NewProductPatch(patch)}
	if err := c.invoke(ctx, transport.MethodUpdateProduct, in, &transport.UpdateProductResponse{}); err != nil {
		return classify("update product", errs.ErrWrite, err)
	}
	return nil
}

// Delete removes a product. A missing product counts as deleted.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	err := c.invoke(ctx, transport.MethodDeleteProduct, &transport.DeleteProductRequest{ID: id.String()}, &transport.DeleteProductResponse{})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return classify("delete product", errs.ErrWrite, err)
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+tok)
		}
	}
	return c.conn.Invoke(ctx, transport.FullMethod(method), in, out, grpc.CallContentSubtype(transport.CodecName))
}

// classify maps a call failure onto the error taxonomy. kind is ErrRead or ErrWrite
// and is added to every failure that is not a caller mistake.
func classify(op string, kind, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w: %w", op, kind, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w: %s", op, errs.ErrValidation, st.Message())
	case codes.NotFound:
		if kind == errs.ErrRead {
			return fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return fmt.Errorf("%s: %w: %w", op, kind, errs.ErrNotFound)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w: %s", op, errs.ErrUnauthorized, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%s: %w", op, errs.ErrAlreadyExists)
	case codes.ResourceExhausted:
		return fmt.Errorf("%s: %w: %s", op, errs.ErrRateLimited, st.Message())
	}
	return fmt.Errorf("%s: %w: %s: %s", op, kind, st.Code(), st.Message())
}
