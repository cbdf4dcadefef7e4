// Command hellojohn-oidc es el servidor OAuth2/OIDC y sus herramientas de
// administración (migraciones, seed, claves).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"

	// adapters de store
	_ "github.com/dropDatabas3/hellojohn-oidc/internal/store/memory"
	_ "github.com/dropDatabas3/hellojohn-oidc/internal/store/pg"
)

// version se inyecta con -ldflags "-X main.version=..."
var version = "dev"

type rootOptions struct {
	configPath string
	envDir     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "hellojohn-oidc",
		Short:         "Servidor de autorización OAuth2 / OpenID Connect",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", envOr("HJ_CONFIG", ""), "ruta a config.yaml (env HJ_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envDir, "env-dir", ".", "directorio donde buscar .env")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newHashPasswordCmd(),
		newKeysCmd(),
	)
	return root
}

// loadConfig carga .env + YAML + env e inicializa el logger global.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	config.LoadDotEnv(o.envDir)
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.App.Version == "" {
		cfg.App.Version = version
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "hellojohn-oidc",
		Version:     cfg.App.Version,
	})
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
