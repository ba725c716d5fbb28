package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// renewBefore is how long before expiry a cached service token is replaced.
const renewBefore = 30 * time.Second

// ServiceTokens signs the bearer tokens the storefront presents to the
// commerce backend. A token is reused until it is close to expiring.
// An empty secret yields anonymous requests.
type ServiceTokens struct {
	secret  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewServiceTokens creates a token source for the given service subject.
func NewServiceTokens(secret, subject string, ttl time.Duration) *ServiceTokens {
	return &ServiceTokens{secret: secret, subject: subject, ttl: ttl, now: time.Now}
}

// Token returns a signed service token, or "" when no secret is configured.
func (s *ServiceTokens) Token(_ context.Context) (string, error) {
	if s.secret == "" {
		return "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(renewBefore).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	s.token, s.expires = signed, expires
	return signed, nil
}
