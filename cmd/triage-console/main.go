package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"

	"github.com/joelkehle/triage-console/internal/console"
	"github.com/joelkehle/triage-console/internal/telemetry"
	"github.com/joelkehle/triage-console/internal/triageclient"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	var (
		backendURL = flag.String("backend-url", envOr("TRIAGE_BACKEND_URL", "http://localhost:5000"), "Analysis service base URL")
		addr       = flag.String("addr", ":8090", "Console listen address")
		pageTTL    = flag.Duration("page-ttl", 2*time.Hour, "Drop page sessions idle for longer than this")
		sweepEvery = flag.Duration("sweep-interval", 5*time.Minute, "How often idle page sessions are swept")
	)
	flag.Parse()

	if strings.TrimSpace(*backendURL) == "" {
		log.Fatal("--backend-url is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "triage-console")
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	metrics := console.NewMetrics()
	backend := console.InstrumentBackend(triageclient.NewClient(*backendURL), metrics)
	pages := console.NewPageStore(backend, metrics)

	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Every(*sweepEvery).Do(func() {
		pages.Sweep(*pageTTL)
	}); err != nil {
		log.Fatalf("failed to schedule page sweep: %v", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	handler := console.NewServer(pages, metrics)

	log.Printf("triage-console listening on %s (backend=%s, page-ttl=%s)", *addr, *backendURL, *pageTTL)
	srv := &http.Server{Addr: *addr, Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
