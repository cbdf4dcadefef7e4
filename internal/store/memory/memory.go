// Package memory implementa un store en memoria para desarrollo y tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
)

func init() {
	store.RegisterAdapter(adapter{})
}

type adapter struct{}

func (adapter) Name() string { return "memory" }

func (adapter) Connect(_ context.Context, _ store.AdapterConfig) (store.Connection, error) {
	return New(), nil
}

// Store guarda todo en maps protegidos por un único RWMutex.
// Los getters devuelven copias: mutar el resultado no altera el store.
type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	apps  map[string]*repository.Application
	users map[string]*repository.User
	scps  map[string]*repository.Scope
	auths map[string]*repository.Authorization
	toks  map[string]*repository.Token
}

// New crea un store vacío.
func New() *Store {
	return &Store{
		now:   time.Now,
		apps:  map[string]*repository.Application{},
		users: map[string]*repository.User{},
		scps:  map[string]*repository.Scope{},
		auths: map[string]*repository.Authorization{},
		toks:  map[string]*repository.Token{},
	}
}

// WithClock fija el reloj usado para CreatedAt (tests).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Name() string               { return "memory" }
func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) Applications() repository.ApplicationRepository     { return appRepo{s} }
func (s *Store) Users() repository.UserRepository                   { return userRepo{s} }
func (s *Store) Scopes() repository.ScopeRepository                 { return scopeRepo{s} }
func (s *Store) Authorizations() repository.AuthorizationRepository { return authzRepo{s} }
func (s *Store) Tokens() repository.TokenRepository                 { return tokenRepo{s} }

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now().UTC()
	}
}

// ─── Applications ───

type appRepo struct{ s *Store }

func cloneApp(a *repository.Application) *repository.Application {
	c := *a
	c.RedirectURIs = slices.Clone(a.RedirectURIs)
	c.PostLogoutRedirectURIs = slices.Clone(a.PostLogoutRedirectURIs)
	c.Permissions = slices.Clone(a.Permissions)
	return &c
}

func (r appRepo) GetByID(_ context.Context, id string) (*repository.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.apps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneApp(a), nil
}

func (r appRepo) GetByClientID(_ context.Context, clientID string) (*repository.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.apps {
		if a.ClientID == clientID {
			return cloneApp(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r appRepo) Create(_ context.Context, app *repository.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.apps {
		if a.ClientID == app.ClientID {
			return repository.ErrConflict
		}
	}
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	r.s.stamp(&app.CreatedAt)
	r.s.apps[app.ID] = cloneApp(app)
	return nil
}

func (r appRepo) List(_ context.Context) ([]repository.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Application, 0, len(r.s.apps))
	for _, a := range r.s.apps {
		out = append(out, *cloneApp(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out, nil
}

// ─── Users ───

type userRepo struct{ s *Store }

func cloneUser(u *repository.User) *repository.User {
	c := *u
	c.Roles = slices.Clone(u.Roles)
	return &c
}

func (r userRepo) GetByID(_ context.Context, id string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r userRepo) FindByLogin(_ context.Context, login string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.UserName, login) || (u.Email != "" && strings.EqualFold(u.Email, login)) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Create(_ context.Context, u *repository.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.users {
		if strings.EqualFold(ex.UserName, u.UserName) || (u.Email != "" && strings.EqualFold(ex.Email, u.Email)) {
			return repository.ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.s.stamp(&u.CreatedAt)
	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r userRepo) UpdateLockout(_ context.Context, id string, st repository.LockoutState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.AccessFailedCount = st.AccessFailedCount
	u.LockoutEnd = st.LockoutEnd
	return nil
}

// ─── Scopes ───

type scopeRepo struct{ s *Store }

func (r scopeRepo) GetByName(_ context.Context, name string) (*repository.Scope, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.scps[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *sc
	c.Resources = slices.Clone(sc.Resources)
	return &c, nil
}

func (r scopeRepo) List(_ context.Context) ([]repository.Scope, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]repository.Scope, 0, len(r.s.scps))
	for _, sc := range r.s.scps {
		c := *sc
		c.Resources = slices.Clone(sc.Resources)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r scopeRepo) Upsert(_ context.Context, sc *repository.Scope) error {
	if sc.Name == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *sc
	c.Resources = slices.Clone(sc.Resources)
	r.s.scps[sc.Name] = &c
	return nil
}

func (r scopeRepo) ListResources(_ context.Context, names []string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []string
	for _, n := range names {
		sc, ok := r.s.scps[n]
		if !ok {
			continue
		}
		for _, res := range sc.Resources {
			if !slices.Contains(out, res) {
				out = append(out, res)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// ─── Authorizations ───

type authzRepo struct{ s *Store }

func cloneAuthz(a *repository.Authorization) *repository.Authorization {
	c := *a
	c.Scopes = slices.Clone(a.Scopes)
	return &c
}

func (r authzRepo) Create(_ context.Context, a *repository.Authorization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, dup := r.s.auths[a.ID]; dup {
		return repository.ErrConflict
	}
	r.s.stamp(&a.CreatedAt)
	r.s.auths[a.ID] = cloneAuthz(a)
	return nil
}

func (r authzRepo) GetByID(_ context.Context, id string) (*repository.Authorization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.auths[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAuthz(a), nil
}

func (r authzRepo) Find(_ context.Context, f repository.AuthorizationFilter) ([]repository.Authorization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Authorization
	for _, a := range r.s.auths {
		if f.Subject != "" && a.Subject != f.Subject {
			continue
		}
		if f.ApplicationID != "" && a.ApplicationID != f.ApplicationID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, *cloneAuthz(a))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r authzRepo) UpdateStatus(_ context.Context, id string, status types.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.auths[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	return nil
}

// ─── Tokens ───

type tokenRepo struct{ s *Store }

func cloneToken(t *repository.Token) *repository.Token {
	c := *t
	c.Scopes = slices.Clone(t.Scopes)
	if t.Properties != nil {
		c.Properties = make(map[string]string, len(t.Properties))
		for k, v := range t.Properties {
			c.Properties[k] = v
		}
	}
	return &c
}

func (r tokenRepo) Create(_ context.Context, t *repository.Token) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, dup := r.s.toks[t.ID]; dup {
		return repository.ErrConflict
	}
	if t.ReferenceID != "" {
		for _, ex := range r.s.toks {
			if ex.ReferenceID == t.ReferenceID {
				return repository.ErrConflict
			}
		}
	}
	r.s.stamp(&t.CreatedAt)
	r.s.toks[t.ID] = cloneToken(t)
	return nil
}

func (r tokenRepo) GetByID(_ context.Context, id string) (*repository.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.toks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(t), nil
}

func (r tokenRepo) GetByReferenceID(_ context.Context, ref string) (*repository.Token, error) {
	if ref == "" {
		return nil, repository.ErrNotFound
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.toks {
		if t.ReferenceID == ref {
			return cloneToken(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r tokenRepo) UpdateStatus(_ context.Context, id string, status types.Status) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.toks[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.Status = status
	return nil
}

func (r tokenRepo) TransitionStatus(_ context.Context, id string, from, to types.Status) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.toks[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	if to == types.StatusRedeemed {
		now := r.s.now().UTC()
		t.RedeemedAt = &now
	}
	return true, nil
}

func (r tokenRepo) ListByAuthorizationID(_ context.Context, authorizationID string) ([]repository.Token, error) {
	if authorizationID == "" {
		return nil, nil
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []repository.Token
	for _, t := range r.s.toks {
		if t.AuthorizationID == authorizationID {
			out = append(out, *cloneToken(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
