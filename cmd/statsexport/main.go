package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/logging"
	"github.com/brensch/broadside/stats"
)

// defaultDBPath is where the game server keeps its database, relative to
// the server's working directory.
const defaultDBPath = "instance/game.db"

func main() {
	source := flag.String("source", getEnvOrDefault("STATS_SOURCE", "http"), "Where to read matches from: http, sqlite or parquet")
	server := flag.String("server", getEnvOrDefault("BROADSIDE_SERVER", "http://localhost:5000"), "Game server base URL (source=http)")
	dbPath := flag.String("db", getEnvOrDefault("STATS_DB", defaultDBPath), "Server SQLite database (source=sqlite)")
	glob := flag.String("parquet", getEnvOrDefault("STATS_PARQUET", "stats/*.parquet"), "Parquet files to read (source=parquet)")
	format := flag.String("format", getEnvOrDefault("STATS_FORMAT", "csv"), "Output format: csv or parquet")
	out := flag.String("out", getEnvOrDefault("STATS_OUT", stats.DefaultExportName), "Output file; - writes CSV to stdout")
	timeout := flag.Duration("timeout", getEnvDurationOrDefault("STATS_TIMEOUT", 30*time.Second), "Overall timeout")
	flag.Parse()

	logger, closer, err := logging.Setup("", logLevel())
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	src, closeSrc, err := openSource(*source, *server, *dbPath, *glob)
	if err != nil {
		log.Fatalf("Failed to open source: %v", err)
	}
	defer closeSrc()

	resp, err := src.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read matches: %v", err)
	}
	recs := stats.Flatten(*resp)

	rep := stats.Aggregate(*resp)
	for _, k := range rep.KPIs {
		attrs := []any{"category", k.Title, "total", k.TotalText()}
		for _, w := range k.Winners {
			attrs = append(attrs, w.Name+"_wins", w.PctText(), w.Name+"_mean", w.MeanText())
		}
		logger.Info("category summary", attrs...)
	}

	switch {
	case *out == "-":
		err = stats.WriteCSV(os.Stdout, recs)
	case *format == "parquet":
		err = stats.WriteParquet(*out, recs)
	case *format == "csv":
		err = stats.WriteCSVFile(*out, recs)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		log.Fatalf("Failed to export: %v", err)
	}
	log.Printf("Exported %d matches from %s to %s", len(recs), *source, *out)
}

func openSource(kind, server, dbPath, glob string) (stats.Source, func(), error) {
	switch kind {
	case "http":
		return api.NewClient(server), func() {}, nil
	case "sqlite":
		s, err := stats.OpenSQLite(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "parquet":
		s, err := stats.OpenParquet(glob)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", kind)
}

func logLevel() slog.Level {
	l, err := logging.ParseLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
