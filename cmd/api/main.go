package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"findmyservice.org/internal/config"
	"findmyservice.org/internal/httpapi"
	"findmyservice.org/internal/market"
	"findmyservice.org/internal/obs"
	"findmyservice.org/internal/payment"
	"findmyservice.org/internal/store/pg"
)

var version = "0.3.1"

func main() {
	cfg := config.MustLoad()
	obs.Init()

	// DSN set: PostgreSQL. Otherwise an in-memory store for local runs.
	var (
		store market.Store = market.NewInMemory()
		probe httpapi.ReadyProbe
	)
	if cfg.DB.DSN != "" {
		pgStore, err := pg.Open(cfg.DB.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	}

	var payments *market.Payments
	if cfg.Stripe.APIKey != "" {
		gateway, err := payment.NewStripe(cfg.Stripe.APIKey)
		if err != nil {
			log.Fatalf("stripe: %v", err)
		}
		payments = market.NewPayments(store, gateway)
	} else {
		log.Println("stripe key not set, payment endpoints disabled")
	}

	api := httpapi.New(store, payments, probe, httpapi.Options{
		Version:    version,
		TokenTTL:   cfg.Auth.TokenTTL,
		RateBurst:  cfg.RateLimit.Burst,
		RatePerSec: cfg.RateLimit.PerSec,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPServer.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTPServer.ReadTimeout,
		WriteTimeout:      cfg.HTTPServer.WriteTimeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	log.Printf("Starting findmyservice-api %s on %s (env=%s)", version, srv.Addr, cfg.Env)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
