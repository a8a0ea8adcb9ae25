/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/regform/apiserver/config"
	"github.com/regform/apiserver/internal/server"
	"github.com/regform/apiserver/pkg/logger"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the regform backend server",
	Long: `Starts the regform backend server. Usage:

	regform server
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		mode := logger.DevelopmentMode
		if os.Getenv("ENV") == "production" {
			mode = logger.ProductionMode
		}
		log, err := logger.New(mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()

		srv, err := server.New(cmd.Context(), cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
