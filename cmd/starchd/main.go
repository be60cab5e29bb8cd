package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluefeet/starch-exchange/internal/config"
	"github.com/bluefeet/starch-exchange/internal/exchange"
	"github.com/bluefeet/starch-exchange/internal/messaging"
	"github.com/bluefeet/starch-exchange/internal/metrics"
	"github.com/bluefeet/starch-exchange/internal/session"
	"github.com/bluefeet/starch-exchange/internal/session/memory"
	pgstore "github.com/bluefeet/starch-exchange/internal/session/postgres"
	redistore "github.com/bluefeet/starch-exchange/internal/session/redis"
)

// sweepInterval is how often expired Postgres sessions are purged. Redis
// and the memory store expire entries themselves.
const sweepInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sameSite, _ := cfg.SameSite() // validated by Load

	// cleanup collects teardown functions, run in reverse on shutdown.
	var cleanup []func()

	// --- Session store ---
	var store session.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore(time.Minute)

	case config.StoreRedis:
		rs, err := redistore.NewStore(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		store = rs
		cleanup = append(cleanup, func() { rs.Close() })

	case config.StorePostgres:
		ps, err := pgstore.NewStore(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("failed to connect to Postgres: %v", err)
		}
		store = ps

		done := make(chan struct{})
		go sweepExpired(ps, done)
		cleanup = append(cleanup, func() {
			close(done)
			ps.Close()
		})
	}

	// --- NATS (optional) ---
	var events session.Events
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultConfig()
		natsConfig.URL = cfg.NATSURL
		natsClient, err := messaging.NewClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		events = natsClient
		cleanup = append(cleanup, natsClient.Close)
	}

	// --- Session manager and exchange service ---
	manager, err := session.NewManager(session.Config{
		Store:      store,
		TTL:        cfg.SessionTTL,
		CookieName: cfg.CookieName,
		Cookie: session.CookieOptions{
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
			MaxAge:   cfg.CookieMaxAge,
			Secure:   cfg.CookieSecure,
			HttpOnly: cfg.CookieHTTPOnly,
			SameSite: sameSite,
		},
		Events: events,
	})
	if err != nil {
		log.Fatalf("failed to build session manager: %v", err)
	}

	svc, err := exchange.New(manager, exchange.WithResponseValidation(cfg.ValidateResponses))
	if err != nil {
		log.Fatalf("failed to build exchange service: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", svc)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	log.Printf("starchd session exchange starting")
	log.Printf("  listen_addr:        %s", cfg.ListenAddr)
	log.Printf("  store:              %s", cfg.Store)
	log.Printf("  cookie_name:        %s", cfg.CookieName)
	log.Printf("  session_ttl:        %s", cfg.SessionTTL)
	log.Printf("  validate_responses: %v", cfg.ValidateResponses)
	if cfg.NATSURL != "" {
		log.Printf("  nats_url:           %s", cfg.NATSURL)
	}

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
}

// sweepExpired periodically removes expired sessions from the Postgres
// store until done is closed.
func sweepExpired(ps *pgstore.Store, done <-chan struct{}) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := ps.DeleteExpired(ctx)
			cancel()
			if err != nil {
				log.Printf("session sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("session sweep removed %d expired sessions", n)
			}
		case <-done:
			return
		}
	}
}
