package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/de-tools/concession-forecast/pkg/runtime/terminal"
	"github.com/de-tools/concession-forecast/pkg/services/calendar"
	"github.com/de-tools/concession-forecast/pkg/store/warehouse"
)

func main() {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("CONCESSIONS_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	cli := terminal.NewCLI(terminal.Options{
		Warehouses: warehouse.DefaultRegistry(),
		Holidays:   calendar.NewLoader(nil),
		Output:     os.Stdout,
	})

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
