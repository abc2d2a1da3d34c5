package main

import (
	"fmt"

	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "initdb",
	Short: "Create the schema and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadWithValidation(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		log := logger.New(config.ServiceName, cfg.Server.Environment, cfg.Log.Level)
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		applied, err := db.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	},
}
