// Package bootstrap carga datos iniciales (scopes, aplicaciones, usuarios)
// desde un archivo YAML. Es idempotente: lo que ya existe se saltea.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/types"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/validation"
)

// SeedFile es el formato del archivo de seed.
type SeedFile struct {
	Scopes       []ScopeSeed       `yaml:"scopes"`
	Applications []ApplicationSeed `yaml:"applications"`
	Users        []UserSeed        `yaml:"users"`
}

type ScopeSeed struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name"`
	Description string   `yaml:"description"`
	Resources   []string `yaml:"resources"`
}

type ApplicationSeed struct {
	ClientID               string            `yaml:"client_id"`
	DisplayName            string            `yaml:"display_name"`
	ClientType             types.ClientType  `yaml:"client_type"`
	ConsentType            types.ConsentType `yaml:"consent_type"`
	ClientSecret           string            `yaml:"client_secret"`
	RedirectURIs           []string          `yaml:"redirect_uris"`
	PostLogoutRedirectURIs []string          `yaml:"post_logout_redirect_uris"`
	Permissions            []string          `yaml:"permissions"`
}

type UserSeed struct {
	UserName      string   `yaml:"username"`
	Email         string   `yaml:"email"`
	EmailVerified bool     `yaml:"email_verified"`
	Name          string   `yaml:"name"`
	GivenName     string   `yaml:"given_name"`
	FamilyName    string   `yaml:"family_name"`
	Password      string   `yaml:"password"`
	Roles         []string `yaml:"roles"`
}

// Repos son los repositorios que el seed escribe.
type Repos struct {
	Applications repository.ApplicationRepository
	Users        repository.UserRepository
	Scopes       repository.ScopeRepository
}

// SeedConfig configura la carga.
type SeedConfig struct {
	Repos  Repos
	Policy password.Policy
	Params password.Params
}

// SeedResult cuenta lo creado y lo salteado.
type SeedResult struct {
	Scopes, Applications, Users int
	Skipped                     int
}

// LoadSeedFile parsea el YAML de seed.
func LoadSeedFile(path string) (*SeedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}
	return &f, nil
}

// Apply escribe el seed. Los scopes se upsertean; apps y usuarios existentes se saltean.
func Apply(ctx context.Context, cfg SeedConfig, f *SeedFile) (*SeedResult, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"), logger.Op("Apply"))
	if cfg.Params == (password.Params{}) {
		cfg.Params = password.Default
	}
	res := &SeedResult{}

	for _, s := range f.Scopes {
		if !validation.ValidScopeName(s.Name) {
			return res, fmt.Errorf("seed: invalid scope name %q", s.Name)
		}
		err := cfg.Repos.Scopes.Upsert(ctx, &repository.Scope{
			Name: s.Name, DisplayName: s.DisplayName, Description: s.Description, Resources: s.Resources,
		})
		if err != nil {
			return res, fmt.Errorf("seed: scope %s: %w", s.Name, err)
		}
		res.Scopes++
	}

	for _, a := range f.Applications {
		created, err := seedApplication(ctx, cfg, a)
		if err != nil {
			return res, err
		}
		if !created {
			res.Skipped++
			log.Info("application exists, skipping", logger.ClientID(a.ClientID))
			continue
		}
		res.Applications++
	}

	for _, u := range f.Users {
		created, err := seedUser(ctx, cfg, u)
		if err != nil {
			return res, err
		}
		if !created {
			res.Skipped++
			continue
		}
		res.Users++
	}
	return res, nil
}

func seedApplication(ctx context.Context, cfg SeedConfig, a ApplicationSeed) (bool, error) {
	if strings.TrimSpace(a.ClientID) == "" {
		return false, errors.New("seed: application without client_id")
	}
	if !a.ClientType.IsValid() {
		return false, fmt.Errorf("seed: %s: invalid client_type %q", a.ClientID, a.ClientType)
	}
	if a.ConsentType == 0 {
		a.ConsentType = types.ConsentExplicit
	}
	switch {
	case a.ClientType == types.ClientTypeConfidential && a.ClientSecret == "":
		return false, fmt.Errorf("seed: %s: confidential client requires client_secret", a.ClientID)
	case a.ClientType == types.ClientTypePublic && a.ClientSecret != "":
		return false, fmt.Errorf("seed: %s: public client cannot have client_secret", a.ClientID)
	}

	if _, err := cfg.Repos.Applications.GetByClientID(ctx, a.ClientID); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, fmt.Errorf("seed: lookup %s: %w", a.ClientID, err)
	}

	app := &repository.Application{
		ClientID:               a.ClientID,
		DisplayName:            a.DisplayName,
		ClientType:             a.ClientType,
		ConsentType:            a.ConsentType,
		RedirectURIs:           a.RedirectURIs,
		PostLogoutRedirectURIs: a.PostLogoutRedirectURIs,
		Permissions:            a.Permissions,
	}
	if a.ClientSecret != "" {
		h, err := password.Hash(cfg.Params, a.ClientSecret)
		if err != nil {
			return false, err
		}
		app.SecretHash = h
	}
	if err := cfg.Repos.Applications.Create(ctx, app); err != nil {
		if repository.IsConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("seed: create %s: %w", a.ClientID, err)
	}
	return true, nil
}

func seedUser(ctx context.Context, cfg SeedConfig, u UserSeed) (bool, error) {
	login := u.UserName
	if login == "" {
		login = u.Email
	}
	if login == "" {
		return false, errors.New("seed: user without username or email")
	}
	if _, err := cfg.Repos.Users.FindByLogin(ctx, login); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, fmt.Errorf("seed: lookup user %s: %w", login, err)
	}

	if err := cfg.Policy.Validate(u.Password); err != nil {
		return false, fmt.Errorf("seed: user %s: %w", login, err)
	}
	h, err := password.Hash(cfg.Params, u.Password)
	if err != nil {
		return false, err
	}
	user := &repository.User{
		UserName:       u.UserName,
		Email:          u.Email,
		EmailVerified:  u.EmailVerified,
		Name:           u.Name,
		GivenName:      u.GivenName,
		FamilyName:     u.FamilyName,
		PasswordHash:   h,
		SecurityStamp:  uuid.NewString(),
		Roles:          u.Roles,
		LockoutEnabled: true,
	}
	if err := cfg.Repos.Users.Create(ctx, user); err != nil {
		if repository.IsConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("seed: create user %s: %w", login, err)
	}
	return true, nil
}
