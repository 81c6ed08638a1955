package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zntb/automated-newsletter-service/internal/metrics"
)

const bytesNum = 32

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
)

type tokenRepository interface {
	DeleteByIdentifier(ctx context.Context, identifier string) error
	Insert(ctx context.Context, identifier, token string, expires time.Time) error
	ConsumeDualKey(ctx context.Context, identifier, token string, now time.Time) (bool, error)
	ConsumeByToken(ctx context.Context, token string, now time.Time) (string, bool, error)
	FindDualKey(ctx context.Context, identifier, token string) (time.Time, bool, error)
	FindByToken(ctx context.Context, token string) (time.Time, bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service issues and redeems single-use verification tokens. An identifier
// has at most one live token; issuing a new one invalidates the previous.
type Service struct {
	repo tokenRepository
	m    *metrics.Metrics
	now  func() time.Time
}

func NewService(repo tokenRepository, m *metrics.Metrics) *Service {
	return &Service{repo: repo, m: m, now: time.Now}
}

// Issue creates a fresh token for identifier with the given lifetime,
// replacing any outstanding one.
func (s *Service) Issue(ctx context.Context, identifier string, ttl time.Duration) (string, error) {
	tokenBytes := make([]byte, bytesNum)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := s.repo.DeleteByIdentifier(ctx, identifier); err != nil {
		return "", err
	}
	if err := s.repo.Insert(ctx, identifier, token, s.now().Add(ttl)); err != nil {
		return "", err
	}

	s.m.TokensIssued.Inc()
	return token, nil
}

// Consume redeems a token presented together with its identifier. Exactly
// one of two racing calls succeeds; the loser gets ErrTokenNotFound or
// ErrTokenExpired depending on what remains in the store.
func (s *Service) Consume(ctx context.Context, identifier, token string) error {
	won, err := s.repo.ConsumeDualKey(ctx, identifier, token, s.now())
	if err != nil {
		return err
	}
	if won {
		s.m.TokensConsumed.WithLabelValues("ok").Inc()
		return nil
	}
	return s.classifyDualKey(ctx, identifier, token)
}

// ConsumeByToken redeems a token known only by its value and returns the
// identifier it was issued for.
func (s *Service) ConsumeByToken(ctx context.Context, token string) (string, error) {
	identifier, won, err := s.repo.ConsumeByToken(ctx, token, s.now())
	if err != nil {
		return "", err
	}
	if won {
		s.m.TokensConsumed.WithLabelValues("ok").Inc()
		return identifier, nil
	}

	// The delete matched nothing: either the token never existed (or was
	// already used) or it is still present but expired.
	expires, found, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return "", err
	}
	if found && expires.Before(s.now()) {
		s.m.TokensConsumed.WithLabelValues("expired").Inc()
		return "", ErrTokenExpired
	}
	s.m.TokensConsumed.WithLabelValues("not_found").Inc()
	return "", ErrTokenNotFound
}

// Validate checks a dual-key token without consuming it.
func (s *Service) Validate(ctx context.Context, identifier, token string) error {
	expires, found, err := s.repo.FindDualKey(ctx, identifier, token)
	if err != nil {
		return err
	}
	if !found {
		return ErrTokenNotFound
	}
	if expires.Before(s.now()) {
		return ErrTokenExpired
	}
	return nil
}

// PurgeExpired removes dead rows; wired to the cleanup cron job.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *Service) classifyDualKey(ctx context.Context, identifier, token string) error {
	expires, found, err := s.repo.FindDualKey(ctx, identifier, token)
	if err != nil {
		return err
	}
	if found && expires.Before(s.now()) {
		s.m.TokensConsumed.WithLabelValues("expired").Inc()
		return ErrTokenExpired
	}
	s.m.TokensConsumed.WithLabelValues("not_found").Inc()
	return ErrTokenNotFound
}
