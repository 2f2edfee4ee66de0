package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
)

const DefaultSessionTTL = 8 * time.Hour

// SessionService issues opaque session tokens. Only the SHA-256 of a token
// is ever stored.
type SessionService struct {
	repo  ports.SessionRepository
	cache ports.SessionCache
	log   logr.Logger
	now   func() time.Time
}

// NewSessionService wires repo with an optional cache; cache may be nil.
func NewSessionService(repo ports.SessionRepository, cache ports.SessionCache, log logr.Logger) *SessionService {
	return &SessionService{repo: repo, cache: cache, log: log.WithName("sessions"), now: time.Now}
}

func (s *SessionService) Open(ctx context.Context, p domain.Principal, ttl time.Duration) (string, domain.Session, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", domain.Session{}, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := recordTime(s.now())
	sess := domain.Session{
		ID:        uuid.NewString(),
		TokenHash: HashToken(token),
		UserID:    p.Subject,
		Email:     p.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	return token, sess, nil
}

// Resolve returns the live session for token; unknown or expired tokens
// yield domain.ErrNotFound.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, domain.ErrNotFound
	}
	hash := HashToken(token)
	now := s.now()

	if s.cache != nil {
		sess, ok, err := s.cache.Get(ctx, hash)
		if err != nil {
			s.log.V(1).Info("session cache read failed", "error", err.Error())
		} else if ok && !sess.Expired(now) {
			return sess, nil
		}
	}

	sess, err := s.repo.FindByTokenHash(ctx, hash)
	if err != nil {
		return domain.Session{}, err
	}
	if sess.Expired(now) {
		return domain.Session{}, domain.ErrNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, sess, sess.ExpiresAt.Sub(now)); err != nil {
			s.log.V(1).Info("session cache write failed", "error", err.Error())
		}
	}
	return sess, nil
}

func (s *SessionService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrNotFound
	}
	hash := HashToken(token)
	if s.cache != nil {
		if err := s.cache.Delete(ctx, hash); err != nil {
			s.log.V(1).Info("session cache delete failed", "error", err.Error())
		}
	}

	deleted, err := s.repo.DeleteByTokenHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

var _ ports.SessionResolver = (*SessionService)(nil)

// RevokeOwned revokes token only if it was issued to p.
func (s *SessionService) RevokeOwned(ctx context.Context, p domain.Principal, token string) error {
	sess, err := s.Resolve(ctx, token)
	if err != nil {
		return err
	}
	if sess.UserID != p.Subject {
		return fmt.Errorf("%w: session belongs to another user", domain.ErrForbidden)
	}
	return s.Revoke(ctx, token)
}
