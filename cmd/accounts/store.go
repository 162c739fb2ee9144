package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/accounts/internal/http/server"
	"github.com/dropDatabas3/accounts/internal/observability/logger"
)

func indexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Crea los índices de Mongo (idempotente)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Mongo.URI == "" {
				return errors.New("mongo.uri is required")
			}
			stores, err := server.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close(cmd.Context())

			if err := stores.Mongo.EnsureIndexes(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func codesCmd() *cobra.Command {
	codes := &cobra.Command{
		Use:   "codes",
		Short: "Mantenimiento de códigos de verificación",
	}

	var olderThan time.Duration
	reap := &cobra.Command{
		Use:   "reap",
		Short: "Borra códigos expirados hace más de --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stores, err := server.OpenStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.Close(cmd.Context())

			n, err := stores.Codes.Reap(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			logger.Named("codes").Info("codes reaped", logger.Count(n))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted=%d\n", n)
			return nil
		},
	}
	reap.Flags().DurationVar(&olderThan, "older-than", 0, "Antigüedad mínima desde la expiración")
	codes.AddCommand(reap)
	return codes
}
