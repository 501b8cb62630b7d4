package main

import (
	"context"
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"turnero/kiosk-service/internal/config"
	"turnero/kiosk-service/internal/httpapi"
	"turnero/kiosk-service/internal/hub"
	"turnero/kiosk-service/internal/store/postgres"
	"turnero/kiosk-service/internal/telemetry"
	"turnero/kiosk-service/internal/ticket"
	"turnero/kiosk-service/internal/workflow"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("kiosk-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	turnStore := postgres.NewStore(pool, ticket.NewGenerator(nil), postgres.Options{
		Schema:    cfg.Schema,
		VerifyTTL: cfg.VerifyTTL,
	})

	controller := workflow.NewController(turnStore, workflow.Options{
		IdentityLength:    cfg.IdentityLength,
		PriorityProfileID: cfg.PriorityProfileID,
	})
	sessions := workflow.NewManager(controller, workflow.ManagerOptions{
		SuccessTimeout: cfg.SuccessTimeout,
		SessionTTL:     cfg.SessionTTL,
	})

	handler := httpapi.NewHandler(sessions, turnStore)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute: cfg.RateLimitPerMinute,
		IPBurst:     cfg.RateLimitBurst,
	})
	boards := hub.New()

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/", handler.Routes())
	sockjsHandler := sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		boards.Register(client)
		defer boards.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				boards.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			boards.UpdateSubscription(client, hub.Subscription{
				BranchID:   parsed.BranchID,
				CategoryID: parsed.CategoryID,
			})
		}
	})
	mux.Handle("/realtime/", sockjsHandler)

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "kiosk-service")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("kiosk-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	watermark := time.Now().UTC()
	var polling int32

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for range ticker.C {
			if !atomic.CompareAndSwapInt32(&polling, 0, 1) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			events, err := turnStore.ListOutboxEvents(ctx, watermark, cfg.BatchSize)
			cancel()
			if err != nil {
				log.Printf("outbox poll error: %v", err)
			}
			for _, event := range events {
				watermark = event.CreatedAt
				env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
				payload, _ := json.Marshal(env)
				boards.Broadcast(payload, extractMeta(event.Payload))
			}
			atomic.StoreInt32(&polling, 0)
		}
	}()

	if cfg.SweepInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.SweepInterval)
			defer ticker.Stop()
			for range ticker.C {
				if removed := sessions.Sweep(); removed > 0 {
					log.Printf("swept %d idle sessions", removed)
				}
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func extractMeta(payload []byte) hub.Subscription {
	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return hub.Subscription{}
	}
	return hub.Subscription{
		BranchID:   str(data["branch_id"]),
		CategoryID: str(data["category_id"]),
	}
}

func str(value interface{}) string {
	if v, ok := value.(string); ok {
		return v
	}
	return ""
}
