package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"steam-provider/internal/components/chrono"
	"steam-provider/internal/components/db"
	"steam-provider/internal/components/telemetry"
	"steam-provider/internal/steam/transport"
	"steam-provider/pkg/configutil"

	"github.com/spf13/cobra"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Database is the sqlite file credentials and reviews are kept in.
	Database string `json:"database"`
	LogLevel string `json:"log_level"`
	// RateLimit is in requests per second.
	RateLimit  float64          `json:"rate_limit"`
	RetryDelay string           `json:"retry_delay"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

func defaultConfig() Config {
	return Config{
		Database:  "steamscrape.db",
		LogLevel:  "info",
		RateLimit: 1,
	}
}

type globals struct {
	config    Config
	time      chrono.TimeAPI
	tel       telemetry.API
	otel      telemetry.Telemetry
	transport *transport.Client

	database *sql.DB
	qry      *db.Queries
}

type globalsKeyType int

const globalsKey globalsKeyType = 0

func getGlobals(ctx context.Context) *globals {
	return ctx.Value(globalsKey).(*globals)
}

func readConfig() (Config, error) {
	config := defaultConfig()
	read, err := configutil.ReadRecursively[Config](configName)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return Config{}, err
	}
	if read.Database != "" {
		config.Database = read.Database
	}
	if read.LogLevel != "" {
		config.LogLevel = read.LogLevel
	}
	if read.RateLimit != 0 {
		config.RateLimit = read.RateLimit
	}
	config.Username = read.Username
	config.Password = read.Password
	config.RetryDelay = read.RetryDelay
	config.Telemetry = read.Telemetry
	return config, nil
}

func setupGlobals(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	config, err := readConfig()
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	telemetry.InitSlog(os.Stderr, telemetry.ParseLevel(config.LogLevel), os.Getenv("NO_COLOR") == "")

	otelProviders, err := telemetry.Setup(ctx, "steamscrape", config.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	tel, err := telemetry.NewOtelAPI(telemetry.SlogAPI{})
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	telemetry.InstrumentPerfStats(ctx, tel)

	var dump telemetry.MessageOutput
	if dumpDir != "" {
		output, err := telemetry.NewFilesystemOutput(dumpDir)
		if err != nil {
			return fmt.Errorf("create dump directory: %w", err)
		}
		dump = output
	}

	client, err := transport.New(tel, transport.Options{
		RequestsPerSecond: config.RateLimit,
		Timeout:           time.Second * 30,
		CloudflareBypass:  true,
		Dump:              dump,
	})
	if err != nil {
		return fmt.Errorf("create http client: %w", err)
	}

	database, err := db.Open(ctx, config.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	cmd.SetContext(context.WithValue(ctx, globalsKey, &globals{
		config:    config,
		time:      chrono.NewStandardTime(),
		tel:       tel,
		otel:      otelProviders,
		transport: client,
		database:  database,
		qry:       db.New(database),
	}))
	return nil
}

func teardownGlobals(ctx context.Context) {
	g, ok := ctx.Value(globalsKey).(*globals)
	if !ok {
		return
	}
	if err := g.database.Close(); err != nil {
		slog.Warn("close database", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := g.otel.Shutdown(ctx); err != nil {
		slog.Warn("shutdown telemetry", "err", err)
	}
}
