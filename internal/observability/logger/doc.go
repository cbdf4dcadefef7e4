// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez, en el comando serve):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
// En services y controllers:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("Token.Exchange"))
//	log.Info("grant resolved", logger.GrantType(gt), logger.Subject(sub))
//
// Los middlewares HTTP inyectan un logger con request_id vía ToContext; fuera de
// un request, From cae al singleton.
package logger
