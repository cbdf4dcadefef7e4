package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellojohn-oidc/internal/bootstrap"
	jwtx "github.com/dropDatabas3/hellojohn-oidc/internal/jwt"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas al store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := logger.ToContext(cmd.Context(), logger.L())
			conn, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()
			return migrate(ctx, conn)
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string
	var skipPolicy bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Carga scopes, aplicaciones y usuarios desde un YAML (idempotente)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("--file is required")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := logger.ToContext(cmd.Context(), logger.L())

			f, err := bootstrap.LoadSeedFile(file)
			if err != nil {
				return err
			}
			conn, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			policy := password.DefaultPolicy
			if skipPolicy {
				policy = password.Policy{}
			}
			res, err := bootstrap.Apply(ctx, bootstrap.SeedConfig{
				Repos: bootstrap.Repos{
					Applications: conn.Applications(),
					Users:        conn.Users(),
					Scopes:       conn.Scopes(),
				},
				Policy: policy,
			}, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scopes=%d applications=%d users=%d skipped=%d\n",
				res.Scopes, res.Applications, res.Users, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "archivo YAML de seed")
	cmd.Flags().BoolVar(&skipPolicy, "skip-password-policy", false, "no validar la política de passwords (sólo dev)")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Imprime el hash argon2id de una password (o secreto de cliente); sin argumento lee stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read stdin: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			h, err := password.Hash(password.Default, plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func newKeysCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Gestión de la clave de firma Ed25519",
	}

	var out string
	var force bool
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Genera una clave privada PKCS#8 PEM",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force)", out)
			}
			ks, err := jwtx.GenerateKeySet()
			if err != nil {
				return err
			}
			if err := ks.WritePEM(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s\n", ks.KID)
			return nil
		},
	}
	gen.Flags().StringVarP(&out, "out", "o", "", "ruta del PEM a escribir")
	gen.Flags().BoolVar(&force, "force", false, "sobrescribir si existe")

	var in string
	jwks := &cobra.Command{
		Use:   "jwks",
		Short: "Imprime el JWKS público de una clave",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" {
				return errors.New("--key is required")
			}
			ks, err := jwtx.LoadKeySet(in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(ks.JWKSJSON()))
			return nil
		},
	}
	jwks.Flags().StringVarP(&in, "key", "k", "", "ruta del PEM")

	keys.AddCommand(gen, jwks)
	return keys
}
