package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-oidc/internal/cache"
	dto "github.com/dropDatabas3/hellojohn-oidc/internal/http/dto/session"
	tokens "github.com/dropDatabas3/hellojohn-oidc/internal/security/token"
)

// ErrNoSession: cookie ausente, desconocida o expirada.
var ErrNoSession = errors.New("session: not found")

const keyPrefix = "sid:"

// Store guarda sesiones en cache bajo "sid:<sha256(cookie)>". El valor en
// claro de la cookie nunca se persiste.
type Store interface {
	Create(ctx context.Context, p dto.SessionPayload) (sessionID string, err error)
	Resolve(ctx context.Context, sessionID string) (*dto.SessionPayload, error)
	Delete(ctx context.Context, sessionID string) error
}

type cacheStore struct {
	c   cache.Client
	now func() time.Time
}

// NewStore crea el store de sesiones sobre un cache.Client.
func NewStore(c cache.Client, now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &cacheStore{c: c, now: now}
}

func key(sessionID string) string { return keyPrefix + tokens.SHA256Base64URL(sessionID) }

func (s *cacheStore) Create(ctx context.Context, p dto.SessionPayload) (string, error) {
	sid, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	ttl := p.Expires.Sub(s.now())
	if ttl <= 0 {
		return "", fmt.Errorf("session: expiry %s is in the past", p.Expires)
	}
	if err := s.c.Set(ctx, key(sid), string(b), ttl); err != nil {
		return "", fmt.Errorf("session: store: %w", err)
	}
	return sid, nil
}

func (s *cacheStore) Resolve(ctx context.Context, sessionID string) (*dto.SessionPayload, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	raw, err := s.c.Get(ctx, key(sessionID))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("session: load: %w", err)
	}
	var p dto.SessionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if p.Subject == "" || !s.now().Before(p.Expires) {
		return nil, ErrNoSession
	}
	return &p, nil
}

func (s *cacheStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.c.Delete(ctx, key(sessionID))
}
