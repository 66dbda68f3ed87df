package main

import (
	"fmt"
	"os"

	"finsense/internal/auth"
	"finsense/internal/client"
	"finsense/internal/config"
	"finsense/internal/logger"
	"finsense/internal/ui"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func main() {
	var (
		baseURL string
		envFile string
		asGuest bool
	)

	root := &cobra.Command{
		Use:     "finsense",
		Short:   "Finsense - conversational stock research in your terminal",
		Long:    "Finsense is an interactive terminal client for the Finsense research backend.\n\nIt walks you through your investment goals in plain conversation, then runs a full research pass and streams the report into the transcript.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(envFile)
			if baseURL != "" {
				cfg.API.BaseURL = baseURL
			}
			if asGuest {
				cfg.Auth.Mode = config.AuthGuest
			}

			log := logger.New(cfg.App.LogFilePath, cfg.App.Environment == "production")
			defer log.Sync()

			gate, err := auth.FromConfig(cfg)
			if err != nil {
				return err
			}

			c := client.New(cfg.API.BaseURL, gate, log, cfg.API.WelcomeTimeout)

			p := ui.NewProgram(cfg, gate, c, log)
			finalModel, err := p.Run()
			if err != nil {
				return err
			}
			if m, ok := finalModel.(*ui.Model); ok {
				if m.DB != nil {
					_ = m.DB.Close()
				}
			}
			return nil
		},
	}

	root.Flags().StringVar(&baseURL, "base-url", "", "backend base URL (overrides FINSENSE_API_URL)")
	root.Flags().StringVar(&envFile, "env-file", "", "path to a .env file to load before reading the environment")
	root.Flags().BoolVar(&asGuest, "guest", false, "skip sign-in and use a local guest identity")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
