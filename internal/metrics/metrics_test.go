package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryServerInterceptor_Counts(t *testing.T) {
	m := New("test")
	ic := m.UnaryServerInterceptor()

	ok := func(context.Context, any) (any, error) { return "ok", nil }
	bad := func(context.Context, any) (any, error) { return nil, status.Error(codes.NotFound, "nf") }

	info := &grpc.UnaryServerInfo{FullMethod: "/ecoeat.catalog.v1.Catalog/CreateProduct"}
	_, err := ic(context.Background(), nil, info, ok)
	require.NoError(t, err)
	_, err = ic(context.Background(), nil, info, bad)
	require.Equal(t, codes.NotFound, status.Code(err))

	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("CreateProduct", "OK")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("CreateProduct", "NotFound")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ProductOperations.WithLabelValues("create")))

	list := &grpc.UnaryServerInfo{FullMethod: "/ecoeat.catalog.v1.Catalog/ListProducts"}
	_, _ = ic(context.Background(), nil, list, func(context.Context, any) (any, error) { return nil, errors.New("x") })
	require.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("ListProducts", "Unknown")))
	require.Equal(t, 1, testutil.CollectAndCount(m.ProductOperations))
}

func TestHandler_Exposes(t *testing.T) {
	m := New("")
	m.RecordProductOperation("delete")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `ecoeat_product_operations_total{operation="delete"} 1`), body)
}
