package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/estimand.report/internal/api"
	"github.com/banshee-data/estimand.report/internal/config"
	"github.com/banshee-data/estimand.report/internal/db"
	"github.com/banshee-data/estimand.report/internal/version"
)

var (
	devMode    = flag.Bool("dev", false, "Run in dev mode")
	listen     = flag.String("listen", ":8080", "Listen address")
	dbFile     = flag.String("db", "results.db", "Path to the results database")
	configFile = flag.String("config", "", "Path to an analysis config JSON file (optional)")
	migrations = flag.String("migrations", "db/migrations", "Path to the migrations directory")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	log.Printf("estimand.report %s", version.String())

	cfg := config.Empty()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(*migrations); err != nil {
		log.Fatalf("failed to migrate results database: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes: tailsql browser and backup download
		database.AttachAdminRoutes(mux)

		apiServer := api.NewServer(database, cfg)
		mux.Handle("/api/", apiServer.ServeMux())

		var handler http.Handler = mux
		if *devMode {
			handler = api.LoggingMiddleware(mux)
		}

		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
