package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/paperdesk/sim-engine/internal/api"
	"github.com/paperdesk/sim-engine/internal/engine"
	"github.com/paperdesk/sim-engine/internal/metrics"
	"github.com/paperdesk/sim-engine/internal/oracle"
	"github.com/paperdesk/sim-engine/internal/risk"
	"github.com/paperdesk/sim-engine/internal/store"
)

// seedPrices are the mock feed's starting points. The cron-driven random
// walk moves them from here.
var seedPrices = map[string]decimal.Decimal{
	"BTC":  decimal.NewFromInt(64000),
	"ETH":  decimal.NewFromInt(3400),
	"SOL":  decimal.NewFromInt(150),
	"USDT": decimal.NewFromInt(1),
	"USDC": decimal.NewFromInt(1),
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Info("DATABASE_URL not set, using in-memory session store")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Randomness ---
	seed := time.Now().UnixNano()
	if s := os.Getenv("SIM_SEED"); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			seed = v
		}
	}
	rng := rand.New(rand.NewSource(seed))

	// --- Price oracle ---
	px := oracle.NewMemoryOracle(seedPrices, rand.New(rand.NewSource(seed+1)))

	// --- Exposure limits (0 = unlimited) ---
	var limiter *risk.ExposureLimiter
	if v := os.Getenv("MAX_EXCHANGE_NOTIONAL"); v != "" {
		perExchange, err := decimal.NewFromString(v)
		if err != nil {
			slog.Error("invalid MAX_EXCHANGE_NOTIONAL", "err", err)
			os.Exit(1)
		}
		total := perExchange.Mul(decimal.NewFromInt(5))
		limiter = risk.NewExposureLimiter(perExchange, total)
	}

	// --- WebSocket hub ---
	wsHub := api.NewWSHub()
	go wsHub.Run()

	// --- Engine ---
	eng := engine.New(engine.Config{
		Store:   st,
		Oracle:  px,
		Rand:    rng,
		Limiter: limiter,
		OnEvent: wsHub.BroadcastEvent,
	})
	defer eng.Close()

	// Resume fill simulation for any pending orders restored from a
	// durable store.
	if err := eng.TrackPending(context.Background()); err != nil {
		slog.Error("failed to resume pending orders", "err", err)
		os.Exit(1)
	}

	// --- Mark-to-market job ---
	refresh := os.Getenv("PRICE_REFRESH")
	if refresh == "" {
		refresh = "@every 15s"
	}
	c := cron.New()
	if _, err := c.AddFunc(refresh, func() {
		px.Step()
		if err := eng.MarkToMarket(context.Background()); err != nil {
			slog.Error("mark-to-market failed", "err", err)
		}
	}); err != nil {
		slog.Error("invalid PRICE_REFRESH schedule", "err", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	// --- HTTP router ---
	svc := api.NewService(eng)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for the dashboard's cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"sim-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time fill and ledger updates.
		r.Get("/ws", wsHub.HandleWS)
		svc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("sim-engine listening", "port", port, "seed", seed)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down sim-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("sim-engine stopped")
}
