package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/accounts/internal/config"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
)

var (
	flagConfig  string
	flagEnvFile string
)

func main() {
	root := &cobra.Command{
		Use:           "accounts",
		Short:         "Servicio de cuentas y verificación de email",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", envOr("CONFIG_PATH", "config.yaml"), "Ruta al config.yaml (opcional)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Archivo .env a cargar si existe")

	root.AddCommand(serveCmd(), indexesCmd(), codesCmd(), mailCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig carga .env (si existe), la config y el logger de proceso.
func loadConfig() (*config.Config, error) {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", flagEnvFile, err)
		}
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "accounts",
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
