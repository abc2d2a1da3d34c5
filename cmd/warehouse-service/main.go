package main

import (
	"fmt"
	"os"

	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/spf13/cobra"
)

var (
	// cfgFile overrides the config search path
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           config.ServiceName,
		Short:         "Drug warehouse inventory and ledger service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/warehouse-service.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.ServiceName, err)
		os.Exit(1)
	}
}
