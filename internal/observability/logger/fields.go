package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// ─── OAuth / OIDC ───

// ClientID es el client_id público de la aplicación, no el id interno.
func ClientID(v string) zap.Field { return zap.String("client_id", v) }

// Subject es el sub del principal (user id o client_id en client_credentials).
func Subject(v string) zap.Field { return zap.String("sub", v) }

func GrantType(v string) zap.Field { return zap.String("grant_type", v) }

func AuthorizationID(v string) zap.Field { return zap.String("authorization_id", v) }

func TokenID(v string) zap.Field { return zap.String("token_id", v) }

func Scopes(v []string) zap.Field { return zap.Strings("scopes", v) }

// Decision es el estado terminal del motor de /authorize.
func Decision(v string) zap.Field { return zap.String("decision", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }

// Op es la operación actual, formato "Service.Method".
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer: handler, service, store.
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
