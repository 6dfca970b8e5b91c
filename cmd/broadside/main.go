package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/broadside/api"
	"github.com/brensch/broadside/logging"
	"github.com/brensch/broadside/mirror"
	"github.com/brensch/broadside/session"
	"github.com/brensch/broadside/stats"
	"github.com/brensch/broadside/tui"
)

func main() {
	server := flag.String("server", getEnvOrDefault("BROADSIDE_SERVER", "http://localhost:5000"), "Game server base URL")
	requestTimeout := flag.Duration("request-timeout", getEnvDurationOrDefault("BROADSIDE_REQUEST_TIMEOUT", api.DefaultTimeout), "Timeout of a single request to the game server")
	thinkingDelay := flag.Duration("thinking-delay", getEnvDurationOrDefault("BROADSIDE_THINKING_DELAY", session.DefaultConfig().ThinkingDelay), "Pause before revealing the engine's reply")
	autoplayInterval := flag.Duration("autoplay-interval", getEnvDurationOrDefault("BROADSIDE_AUTOPLAY_INTERVAL", session.DefaultConfig().AutoplayInterval), "Polling period of engine-versus-engine matches")
	logPath := flag.String("log-path", getEnvOrDefault("BROADSIDE_LOG", "broadside.log"), "Log file (the terminal belongs to the UI)")
	logLevel := flag.String("log-level", getEnvOrDefault("BROADSIDE_LOG_LEVEL", "info"), "debug, info, warn or error")
	mirrorAddr := flag.String("mirror-addr", getEnvOrDefault("BROADSIDE_MIRROR_ADDR", ""), "Serve a read-only HTML/websocket mirror on this address; empty disables it")
	exportPath := flag.String("export-path", getEnvOrDefault("BROADSIDE_EXPORT_PATH", stats.DefaultExportName), "Statistics export file (.csv or .parquet)")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger, closer, err := logging.Setup(*logPath, level)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closer.Close()

	log.Printf("Starting Broadside")
	log.Printf("  Server: %s", *server)
	log.Printf("  Request Timeout: %s", *requestTimeout)
	log.Printf("  Thinking Delay: %s", *thinkingDelay)
	log.Printf("  Autoplay Interval: %s", *autoplayInterval)
	log.Printf("  Mirror: %q", *mirrorAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := api.NewClient(*server, api.WithTimeout(*requestTimeout), api.WithLogger(logger))
	bridge := tui.NewBridge()
	dashboard := stats.NewDashboard(client, bridge, logger)

	views := session.MultiView{bridge}
	var httpSrv *http.Server
	if *mirrorAddr != "" {
		hub := mirror.NewHub(logger.With("component", "mirror"))
		go hub.Run(ctx.Done())
		m := mirror.New(hub, logger)
		mux := http.NewServeMux()
		m.RegisterRoutes(mux)
		httpSrv = &http.Server{Addr: *mirrorAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("Mirror listening on %s", *mirrorAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Mirror stopped: %v", err)
			}
		}()
		views = append(views, m)
	}

	ctrl := session.New(client, views,
		session.WithConfig(session.Config{ThinkingDelay: *thinkingDelay, AutoplayInterval: *autoplayInterval}),
		session.WithStats(dashboard),
		session.WithLogger(logger),
		session.WithContext(ctx),
	)

	export := func(ctx context.Context) (string, error) {
		recs := dashboard.LastRecords()
		if recs == nil {
			if _, err := dashboard.Load(ctx); err != nil {
				return "", err
			}
			recs = dashboard.LastRecords()
		}
		return *exportPath, writeExport(*exportPath, recs)
	}

	model := tui.NewModel(ctx, ctrl, bridge, export, client.BaseURL())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Printf("UI stopped: %v", err)
	}

	ctrl.ReturnToMenu()
	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	log.Printf("Broadside stopped")
}

func writeExport(path string, recs []stats.Record) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return stats.WriteParquet(path, recs)
	case ".csv", "":
		return stats.WriteCSVFile(path, recs)
	}
	return fmt.Errorf("unsupported export format %q", filepath.Ext(path))
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
