package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/omarPVP123131/pos-terminal/internal/auth"
	"github.com/omarPVP123131/pos-terminal/internal/config"
	"github.com/omarPVP123131/pos-terminal/internal/gateway"
	"github.com/omarPVP123131/pos-terminal/internal/gateway/memory"
	pggateway "github.com/omarPVP123131/pos-terminal/internal/gateway/postgres"
	"github.com/omarPVP123131/pos-terminal/internal/gateway/rest"
	"github.com/omarPVP123131/pos-terminal/internal/httpapi"
	"github.com/omarPVP123131/pos-terminal/internal/money"
	"github.com/omarPVP123131/pos-terminal/internal/session"
	"github.com/omarPVP123131/pos-terminal/internal/shift"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	var gw gateway.Gateway
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pggateway.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		gw = pg
		closers = append(closers, pg.Close)
		log.Println("gateway: postgres")
	case cfg.APIBaseURL != "":
		gw = rest.NewClient(cfg.APIBaseURL, 15*time.Second)
		log.Printf("gateway: rest (%s)", cfg.APIBaseURL)
	default:
		gw = memory.NewSeeded()
		log.Println("gateway: in-memory (demo data)")
	}

	var stateStore shift.Store
	switch {
	case cfg.RedisAddr != "":
		redisStore := shift.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RegisterID)
		if err := redisStore.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), falling back to file state", err)
			stateStore = mustFileStore(cfg)
		} else {
			stateStore = redisStore
			closers = append(closers, redisStore.Close)
			log.Println("shift state: redis")
		}
	case cfg.PersistShift:
		stateStore = mustFileStore(cfg)
	default:
		stateStore = shift.NewMemoryStore()
		log.Println("shift state: in-memory")
	}

	rounding := decimal.Zero
	if parsed, ok := money.Parse(cfg.CashRounding); ok {
		rounding = parsed
	}

	engine := session.NewEngine(gw, stateStore, session.Options{
		RegisterID:       cfg.RegisterID,
		TaxRatePercent:   cfg.TaxRatePercent,
		CashRounding:     rounding,
		RequireOpenShift: cfg.RequireOpenShift,
	})
	if err := engine.RestoreShift(ctx); err != nil {
		log.Printf("shift restore failed: %v", err)
	}

	pins := auth.NewPINCache(time.Duration(cfg.OfflinePINTTLMinutes) * time.Minute)
	api := httpapi.New(engine, cfg.AllowedOrigin, pins)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS terminal listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("terminal stopped")
}

func mustFileStore(cfg config.Config) shift.Store {
	fileStore, err := shift.NewFileStore(cfg.StateDir, cfg.RegisterID)
	if err != nil {
		log.Fatalf("cannot create state dir %s: %v", cfg.StateDir, err)
	}
	log.Printf("shift state: file (%s)", cfg.StateDir)
	return fileStore
}
