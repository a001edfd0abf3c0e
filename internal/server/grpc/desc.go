package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/and161185/ecoeat/internal/transport"
)

// CatalogServer is the handler set behind ServiceDesc.
type CatalogServer interface {
	Register(context.Context, *transport.RegisterRequest) (*transport.RegisterResponse, error)
	Login(context.Context, *transport.LoginRequest) (*transport.LoginResponse, error)
	Me(context.Context, *transport.MeRequest) (*transport.MeResponse, error)
	ListProducts(context.Context, *transport.ListProductsRequest) (*transport.ListProductsResponse, error)
	ListDonations(context.Context, *transport.ListDonationsRequest) (*transport.ListDonationsResponse, error)
	GetProduct(context.Context, *transport.GetProductRequest) (*transport.GetProductResponse, error)
	CreateProduct(context.Context, *transport.CreateProductRequest) (*transport.CreateProductResponse, error)
	UpdateProduct(context.Context, *transport.UpdateProductRequest) (*transport.UpdateProductResponse, error)
	DeleteProduct(context.Context, *transport.DeleteProductRequest) (*transport.DeleteProductResponse, error)
}

// ServiceDesc describes the catalog service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: transport.ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(transport.MethodRegister, CatalogServer.Register),
		unary(transport.MethodLogin, CatalogServer.Login),
		unary(transport.MethodMe, CatalogServer.Me),
		unary(transport.MethodListProducts, CatalogServer.ListProducts),
		unary(transport.MethodListDonations, CatalogServer.ListDonations),
		unary(transport.MethodGetProduct, CatalogServer.GetProduct),
		unary(transport.MethodCreateProduct, CatalogServer.CreateProduct),
		unary(transport.MethodUpdateProduct, CatalogServer.UpdateProduct),
		unary(transport.MethodDeleteProduct, CatalogServer.DeleteProduct),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterCatalogServer registers srv on s.
func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			cs := srv.(CatalogServer)
			if ic == nil {
				return call(cs, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: transport.FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(cs, ctx, req.(*Req))
			}
			return ic(ctx, in, info, handler)
		},
	}
}
