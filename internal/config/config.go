// Package config carga la configuración del servidor: YAML + .env + variables
// HJ_* (el env pisa al YAML), con defaults y validación.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefijo de todas las variables de entorno.
const EnvPrefix = "HJ_"

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env" validate:"omitempty,oneof=dev staging prod"`
		LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
		Version  string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr            string        `yaml:"addr" validate:"required"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64         `yaml:"max_body_bytes" validate:"gte=0"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver         string        `yaml:"driver" validate:"required,oneof=postgres memory"`
		DSN            string        `yaml:"dsn" validate:"required_if=Driver postgres"`
		MaxConns       int           `yaml:"max_conns" validate:"gte=0"`
		MinConns       int           `yaml:"min_conns" validate:"gte=0"`
		ConnectRetries int           `yaml:"connect_retries" validate:"gte=0"`
		ConnectTimeout time.Duration `yaml:"connect_timeout"`
		// Migrate aplica las migraciones embebidas al arrancar.
		Migrate bool `yaml:"migrate"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind" validate:"required,oneof=memory redis"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
		} `yaml:"redis"`
		Prefix string `yaml:"prefix"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string        `yaml:"issuer" validate:"required,url"`
		KeyFile    string        `yaml:"key_file"` // PEM Ed25519; vacío = clave efímera (sólo dev)
		AccessTTL  time.Duration `yaml:"access_ttl"`
		IDTokenTTL time.Duration `yaml:"id_token_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
		CodeTTL    time.Duration `yaml:"code_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		LoginURL    string   `yaml:"login_url"`
		RequirePKCE bool     `yaml:"require_pkce"`
		GrantTypes  []string `yaml:"grant_types" validate:"dive,oneof=authorization_code refresh_token password client_credentials"`
		Session     struct {
			CookieName string        `yaml:"cookie_name"`
			Domain     string        `yaml:"domain"`
			SameSite   string        `yaml:"samesite" validate:"omitempty,oneof=Lax Strict None"`
			Secure     bool          `yaml:"secure"`
			TTL        time.Duration `yaml:"ttl"`
		} `yaml:"session"`
		Lockout struct {
			MaxFailedAttempts int           `yaml:"max_failed_attempts" validate:"gte=0"`
			Duration          time.Duration `yaml:"duration"`
		} `yaml:"lockout"`
	} `yaml:"auth"`

	Telemetry struct {
		Endpoint    string  `yaml:"endpoint"`
		Insecure    bool    `yaml:"insecure"`
		ServiceName string  `yaml:"service_name"`
		SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
	} `yaml:"telemetry"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

// LoadDotEnv carga .env y .env.<env> si existen. No pisa variables ya definidas.
func LoadDotEnv(dir string) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))
	if env := os.Getenv(EnvPrefix + "APP_ENV"); env != "" {
		_ = godotenv.Load(filepath.Join(dir, ".env."+strings.ToLower(env)))
	}
}

// Load lee el YAML (opcional si path está vacío), aplica env, defaults y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	// Overrides por env antes de defaults: un HJ_* vacío no cuenta
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 64 << 10
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.MaxConns == 0 {
		c.Storage.MaxConns = 10
	}
	if c.Storage.ConnectTimeout == 0 {
		c.Storage.ConnectTimeout = 5 * time.Second
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "hj:"
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = 15 * time.Minute
	}
	if c.JWT.IDTokenTTL == 0 {
		c.JWT.IDTokenTTL = 15 * time.Minute
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 720 * time.Hour // 30d
	}
	if c.JWT.CodeTTL == 0 {
		c.JWT.CodeTTL = 5 * time.Minute
	}
	if c.Auth.LoginURL == "" {
		c.Auth.LoginURL = "/connect/login"
	}
	if c.Auth.Session.CookieName == "" {
		c.Auth.Session.CookieName = "sid"
	}
	if c.Auth.Session.SameSite == "" {
		c.Auth.Session.SameSite = "Lax"
	}
	if c.Auth.Session.TTL == 0 {
		c.Auth.Session.TTL = 8 * time.Hour
	}
	if c.Auth.Lockout.MaxFailedAttempts == 0 {
		c.Auth.Lockout.MaxFailedAttempts = 5
	}
	if c.Auth.Lockout.Duration == 0 {
		c.Auth.Lockout.Duration = 15 * time.Minute
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "hellojohn-oidc"
	}
}

// Validate corre los tags validate y las reglas cruzadas.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	if c.Cache.Kind == "redis" && strings.TrimSpace(c.Cache.Redis.Addr) == "" {
		return errors.New("config: cache.redis.addr is required when cache.kind=redis")
	}
	// SameSite=None exige Secure (los browsers descartan la cookie)
	if c.Auth.Session.SameSite == "None" && !c.Auth.Session.Secure {
		return errors.New("config: auth.session.secure must be true when samesite=None")
	}
	if c.IsProd() && c.JWT.KeyFile == "" {
		return errors.New("config: jwt.key_file is required in prod")
	}
	return nil
}

// IsProd reporta si app.env es prod.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool, error) {
	s, ok := getEnvStr(key)
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
	}
	return i, true, nil
}

func getEnvBool(key string) (bool, bool, error) {
	s, ok := getEnvStr(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
	}
	return b, true, nil
}

func getEnvDur(key string) (time.Duration, bool, error) {
	s, ok := getEnvStr(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, false, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
	}
	return d, true, nil
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

// envBinder acumula el primer error de parseo.
type envBinder struct{ err error }

func (b *envBinder) str(key string, dst *string) {
	if v, ok := getEnvStr(key); ok {
		*dst = v
	}
}

func (b *envBinder) int(key string, dst *int) {
	v, ok, err := getEnvInt(key)
	if err != nil && b.err == nil {
		b.err = err
	}
	if ok {
		*dst = v
	}
}

func (b *envBinder) bool(key string, dst *bool) {
	v, ok, err := getEnvBool(key)
	if err != nil && b.err == nil {
		b.err = err
	}
	if ok {
		*dst = v
	}
}

func (b *envBinder) dur(key string, dst *time.Duration) {
	v, ok, err := getEnvDur(key)
	if err != nil && b.err == nil {
		b.err = err
	}
	if ok {
		*dst = v
	}
}

// applyEnvOverrides pisa config.yaml con las variables HJ_*.
func (c *Config) applyEnvOverrides() error {
	var b envBinder

	// APP
	b.str("APP_ENV", &c.App.Env)
	c.App.Env = strings.ToLower(c.App.Env)
	b.str("LOG_LEVEL", &c.App.LogLevel)
	b.str("APP_VERSION", &c.App.Version)

	// SERVER
	b.str("SERVER_ADDR", &c.Server.Addr)
	b.dur("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	b.dur("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	b.dur("SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)

	// STORAGE
	b.str("STORAGE_DRIVER", &c.Storage.Driver)
	b.str("STORAGE_DSN", &c.Storage.DSN)
	b.int("STORAGE_MAX_CONNS", &c.Storage.MaxConns)
	b.int("STORAGE_MIN_CONNS", &c.Storage.MinConns)
	b.int("STORAGE_CONNECT_RETRIES", &c.Storage.ConnectRetries)
	b.bool("STORAGE_MIGRATE", &c.Storage.Migrate)

	// CACHE
	b.str("CACHE_KIND", &c.Cache.Kind)
	b.str("CACHE_PREFIX", &c.Cache.Prefix)
	b.str("REDIS_ADDR", &c.Cache.Redis.Addr)
	b.str("REDIS_PASSWORD", &c.Cache.Redis.Password)
	b.int("REDIS_DB", &c.Cache.Redis.DB)

	// JWT
	b.str("JWT_ISSUER", &c.JWT.Issuer)
	b.str("JWT_KEY_FILE", &c.JWT.KeyFile)
	b.dur("JWT_ACCESS_TTL", &c.JWT.AccessTTL)
	b.dur("JWT_ID_TOKEN_TTL", &c.JWT.IDTokenTTL)
	b.dur("JWT_REFRESH_TTL", &c.JWT.RefreshTTL)
	b.dur("JWT_CODE_TTL", &c.JWT.CodeTTL)

	// AUTH
	b.str("AUTH_LOGIN_URL", &c.Auth.LoginURL)
	b.bool("AUTH_REQUIRE_PKCE", &c.Auth.RequirePKCE)
	if v, ok := getEnvCSV("AUTH_GRANT_TYPES"); ok {
		c.Auth.GrantTypes = v
	}
	b.str("AUTH_SESSION_COOKIE_NAME", &c.Auth.Session.CookieName)
	b.str("AUTH_SESSION_DOMAIN", &c.Auth.Session.Domain)
	b.str("AUTH_SESSION_SAMESITE", &c.Auth.Session.SameSite)
	b.bool("AUTH_SESSION_SECURE", &c.Auth.Session.Secure)
	b.dur("AUTH_SESSION_TTL", &c.Auth.Session.TTL)
	b.int("AUTH_LOCKOUT_MAX_FAILED_ATTEMPTS", &c.Auth.Lockout.MaxFailedAttempts)
	b.dur("AUTH_LOCKOUT_DURATION", &c.Auth.Lockout.Duration)

	// TELEMETRY / METRICS
	b.str("OTEL_ENDPOINT", &c.Telemetry.Endpoint)
	b.bool("OTEL_INSECURE", &c.Telemetry.Insecure)
	b.str("OTEL_SERVICE_NAME", &c.Telemetry.ServiceName)
	b.bool("METRICS_ENABLED", &c.Metrics.Enabled)

	return b.err
}
