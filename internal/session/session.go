// Package session is the client-side authentication provider: the current principal,
// its access token persisted on the device, and change notifications.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/ecoeat/internal/model"
)

// Key is the local key holding the signed-in state.
const Key = "session"

// KV is the local persistence the session needs.
type KV interface {
	Get(key string, v any) (bool, error)
	Set(key string, v any) error
	Remove(key string) error
}

type stored struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal model.Principal `json:"principal"`
}

// Session is safe for concurrent use. Listeners are called without the lock held.
type Session struct {
	kv  KV
	log *zap.Logger
	now func() time.Time

	mu     sync.Mutex
	cur    *stored
	subs   map[int]func(*model.Principal)
	nextID int
}

// Open restores the persisted state. Unreadable state counts as signed out.
func Open(kv KV, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{kv: kv, log: log, now: time.Now, subs: map[int]func(*model.Principal){}}
	var st stored
	found, err := kv.Get(Key, &st)
	switch {
	case err != nil:
		log.Warn("session: discarding unreadable state", zap.Error(err))
	case found && st.Token != "" && st.Principal.ID != "":
		s.cur = &st
	}
	return s
}

// Current returns the signed-in principal, or nil when signed out or expired.
func (s *Session) Current() *model.Principal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked() {
		return nil
	}
	p := s.cur.Principal
	return &p
}

// Token returns the access token, or "" when signed out or expired.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.validLocked() {
		return ""
	}
	return s.cur.Token
}

// SignIn persists the new state and notifies listeners. A zero ExpiresAt is read
// from the token's exp claim.
func (s *Session) SignIn(tok model.Tokens, p model.Principal) error {
	if tok.AccessToken == "" || p.ID == "" {
		return errors.New("session: empty token or principal")
	}
	exp := tok.ExpiresAt
	if exp.IsZero() {
		exp = tokenExpiry(tok.AccessToken)
	}
	st := &stored{Token: tok.AccessToken, ExpiresAt: exp, Principal: p}
	if err := s.kv.Set(Key, st); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	s.mu.Lock()
	s.cur = st
	s.mu.Unlock()
	s.notify(&p)
	return nil
}

// SignOut forgets the state and notifies listeners with nil.
func (s *Session) SignOut() error {
	if err := s.kv.Remove(Key); err != nil {
		return fmt.Errorf("session: remove: %w", err)
	}
	s.mu.Lock()
	s.cur = nil
	s.mu.Unlock()
	s.notify(nil)
	return nil
}

// Subscribe calls fn with the current principal now and after every change.
// The returned func removes the listener.
func (s *Session) Subscribe(fn func(*model.Principal)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	fn(s.Current())
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify(p *model.Principal) {
	s.mu.Lock()
	fns := make([]func(*model.Principal), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		var arg *model.Principal
		if p != nil {
			c := *p
			arg = &c
		}
		fn(arg)
	}
}

func (s *Session) validLocked() bool {
	if s.cur == nil {
		return false
	}
	return s.cur.ExpiresAt.IsZero() || s.now().Before(s.cur.ExpiresAt)
}

// tokenExpiry reads exp without verifying the signature; the server verifies.
func tokenExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
