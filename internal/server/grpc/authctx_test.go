package grpcserver

import (
	"context"
	"testing"

	"github.com/and161185/ecoeat/internal/model"
)

func TestWithPrincipal_And_PrincipalFromCtx(t *testing.T) {
	t.Parallel()

	if p, ok := PrincipalFromCtx(context.Background()); ok || p.ID != "" {
		t.Fatalf("expected no principal in empty ctx")
	}

	want := model.Principal{ID: "u1", Email: "u1@example.com"}
	ctx := WithPrincipal(context.Background(), want)

	got, ok := PrincipalFromCtx(ctx)
	if !ok {
		t.Fatalf("expected principal in ctx")
	}
	if got != want {
		t.Fatalf("mismatch: got %+v, want %+v", got, want)
	}

	if _, ok := PrincipalFromCtx(WithPrincipal(context.Background(), model.Principal{})); ok {
		t.Fatalf("expected miss on empty principal")
	}

	type ctxKey string
	const principalKey ctxKey = "ecoeat.principal"
	bad := context.WithValue(context.Background(), principalKey, "not-a-principal")
	if _, ok := PrincipalFromCtx(bad); ok {
		t.Fatalf("expected miss on wrong typed value")
	}
}
