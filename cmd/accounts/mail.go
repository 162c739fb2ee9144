package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/accounts/internal/http/server"
)

func mailCmd() *cobra.Command {
	mail := &cobra.Command{
		Use:   "mail",
		Short: "Utilidades de email",
	}

	var to string
	test := &cobra.Command{
		Use:   "test",
		Short: "Envía un correo de prueba con la config SMTP actual",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return errors.New("--to es requerido")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			n, err := server.NewNotifier(cfg)
			if err != nil {
				return err
			}
			if err := n.SendTest(cmd.Context(), to); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	test.Flags().StringVar(&to, "to", "", "Destinatario")
	mail.AddCommand(test)
	return mail
}
