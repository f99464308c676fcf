package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tidbyt.dev/gtfsgraph"
	"tidbyt.dev/gtfsgraph/config"
	"tidbyt.dev/gtfsgraph/downloader"
	"tidbyt.dev/gtfsgraph/stats"
	"tidbyt.dev/gtfsgraph/storage"
)

var rootCmd = &cobra.Command{
	Use:          "gtfsgraph",
	Short:        "Transit graph builder",
	Long:         "Builds a service graph from a GTFS feed and reconciles its stops with platform zones",
	SilenceUsage: true,
}

var (
	feedSource    string
	configPath    string
	feedHeaders   []string
	zonesDB       string
	zonesPostgres string
	zonesGeoJSON  string
	radius        float64
	writeZones    bool
	logLevel      string
	logJSON       bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&feedSource, "feed", "f", "", "GTFS feed path or URL")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringSliceVarP(
		&feedHeaders,
		"header",
		"",
		[]string{},
		"HTTP header for feed downloads",
	)
	rootCmd.PersistentFlags().StringVarP(&zonesDB, "zones-db", "", "", "Directory of the SQLite zone inventory")
	rootCmd.PersistentFlags().StringVarP(&zonesPostgres, "zones-postgres", "", "", "Postgres connection string of the zone inventory")
	rootCmd.PersistentFlags().StringVarP(&zonesGeoJSON, "zones-geojson", "", "", "GeoJSON zone inventory file")
	rootCmd.PersistentFlags().Float64VarP(&radius, "radius", "r", 0, "Zone search radius in meters (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&writeZones, "write-zones", "w", false, "Write reconciled zones back to the inventory")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&logJSON, "log-json", "", false, "Log JSON instead of console output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

// Config file values, with flags applied on top.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}

	if radius != 0 {
		cfg.SearchRadiusMeters = radius
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logJSON {
		cfg.Logging.JSON = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Logging.JSON {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger.Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// The zone inventory selected by flags. Without one, zones live in
// memory for the duration of the command.
func openStorage() (storage.ZoneStorage, error) {
	switch {
	case zonesPostgres != "":
		return storage.NewPSQLStorage(zonesPostgres, false)
	case zonesDB != "":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: zonesDB})
	case zonesGeoJSON != "":
		return storage.NewGeoJSONStorage(zonesGeoJSON), nil
	}
	return storage.NewMemoryStorage(), nil
}

func newManager(cfg *config.Config, logger zerolog.Logger, s storage.ZoneStorage) (*gtfsgraph.Manager, error) {
	headers, err := parseHeaders(feedHeaders)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	builder := gtfsgraph.NewBuilder(cfg, logger)
	builder.Stats = stats.New()

	manager := gtfsgraph.NewManager(s, builder)
	manager.Headers = headers
	manager.WriteBack = writeZones
	manager.FeedTimeout = cfg.Download.Timeout
	manager.FeedCacheTTL = cfg.Download.CacheTTL
	if cfg.Download.MaxSizeBytes > 0 {
		manager.FeedMaxSize = cfg.Download.MaxSizeBytes
	}
	if cfg.Download.CachePath != "" {
		fs, err := downloader.NewFilesystem(cfg.Download.CachePath, logger)
		if err != nil {
			return nil, fmt.Errorf("creating feed cache: %w", err)
		}
		manager.Downloader = fs
	}

	return manager, nil
}

// Loads config and storage, then builds the feed.
func runBuild(ctx context.Context) (*gtfsgraph.Result, error) {
	if feedSource == "" {
		return nil, fmt.Errorf("feed is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	s, err := openStorage()
	if err != nil {
		return nil, fmt.Errorf("opening zone inventory: %w", err)
	}
	defer s.Close()

	manager, err := newManager(cfg, logger, s)
	if err != nil {
		return nil, err
	}

	return manager.Run(ctx, feedSource)
}
