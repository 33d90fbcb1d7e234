package main

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/concession-forecast/pkg/server"
	"github.com/de-tools/concession-forecast/pkg/services/calendar"
	"github.com/de-tools/concession-forecast/pkg/services/config"
	"github.com/de-tools/concession-forecast/pkg/services/pipeline"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Serve the concession forecast backtest as JSON",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the analysis settings file (YAML)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	settings, err := config.LoadSettings(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	profiles, err := config.NewRegistry(settings.ProfilesPath)
	if err != nil {
		return fmt.Errorf("failed to create profile registry: %w", err)
	}

	session, err := pipeline.OpenSession(ctx, settings, profiles, warehouse.DefaultRegistry())
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close warehouse")
		}
	}()

	reports := pipeline.NewCachedReport(pipeline.NewRunner(settings, session.Loader, calendar.NewLoader(nil)))
	if _, err := reports.Report(ctx); err != nil {
		return fmt.Errorf("failed to compute backtest report: %w", err)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		return fmt.Errorf("missing SERVER_HOST or SERVER_PORT in the environment or .env file")
	}

	api := server.NewWebAPI(logger, server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			Reports: reports,
		},
	})
	return api.Start(ctx)
}
