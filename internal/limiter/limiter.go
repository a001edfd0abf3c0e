// Package limiter throttles failed sign-in attempts per (email, client host).
package limiter

import (
	"context"
	"crypto/sha256"
	"net"
	"strings"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login may be attempted now and, if not, for how long it stays blocked.
	Allow(ctx context.Context, email string, client []byte) (bool, time.Duration, error)
	// Success resets the counters after a successful login.
	Success(ctx context.Context, email string, client []byte) error
	// Failure records a failed attempt and reports whether it placed a block.
	Failure(ctx context.Context, email string, client []byte) (bool, time.Duration, error)
}

// Nop never blocks.
type Nop struct{}

func (Nop) Allow(context.Context, string, []byte) (bool, time.Duration, error)   { return true, 0, nil }
func (Nop) Success(context.Context, string, []byte) error                        { return nil }
func (Nop) Failure(context.Context, string, []byte) (bool, time.Duration, error) { return false, 0, nil }

// HashClient returns a stable hash of the host part of addr, so raw addresses are
// never stored and a new source port does not reset the counters.
func HashClient(addr string) []byte {
	host := strings.TrimSpace(addr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	sum := sha256.Sum256([]byte(host))
	return sum[:]
}

type clientKey struct{}

// WithClient records the caller's network address for the limiter.
func WithClient(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, clientKey{}, addr)
}

// ClientFrom returns the hashed caller address stored by WithClient. Unknown callers
// share one bucket.
func ClientFrom(ctx context.Context) []byte {
	addr, _ := ctx.Value(clientKey{}).(string)
	return HashClient(addr)
}
