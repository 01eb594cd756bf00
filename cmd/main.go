package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/config"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/delivery"
	ws "github.com/ShimOne420/BackendAudioTranscriber/internal/delivery/ws"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/domain"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/infra"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/Vovarama1992/go-utils/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {

	// LOGGER
	zcore, _ := zap.NewProduction()
	zl := logger.NewZapLogger(zcore.Sugar())

	// CONFIG
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// POSTGRES
	pool, err := infra.NewPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		panic("cannot connect pgxpool: " + err.Error())
	}
	defer pool.Close()

	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctxPing); err != nil {
		panic("postgres ping failed: " + err.Error())
	}

	if err := infra.EnsureSchema(ctx, pool); err != nil {
		panic("schema: " + err.Error())
	}
	repo := infra.NewPostgresTranscriptionRepo(pool)

	// SERVICES
	access := domain.NewAccessService(cfg.AccessCodes)
	remote := infra.NewWhisperClient(cfg.RemoteTimeout)

	var blob ports.BlobPublisher
	if cfg.ForwardMode == config.ForwardURL {
		publisher, err := infra.NewS3Publisher(ctx, cfg.S3)
		if err != nil {
			panic("s3 publisher: " + err.Error())
		}
		blob = publisher
	}

	svc := domain.NewTranscribeService(repo, remote, blob, cfg.WorkerURL, cfg.ForwardMode == config.ForwardURL)
	svc.Start(ctx, cfg.Workers)

	// WS HUB
	hub := ws.NewHub()

	// BROADCAST LISTENER
	go func() {
		for ev := range svc.Events() {
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("[SEND][ERR] json marshal failed: %v", err)
				continue
			}
			hub.SendToFile(ev.Filename, payload)
		}
	}()

	// HANDLERS
	hAuth := delivery.NewAuthHandler(access, zl)
	hTranscribe := delivery.NewTranscribeHandler(access, svc, repo, cfg.UploadDir, zl)
	hStatus := delivery.NewStatusHandler(repo, zl)

	// ROUTER
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	delivery.RegisterRoutes(r, hAuth, hTranscribe, hStatus)

	r.Get("/ws/progress", ws.ProgressHandler(hub))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "server started",
		Fields: map[string]any{
			"port":    cfg.Port,
			"mode":    cfg.ForwardMode,
			"workers": cfg.Workers,
		},
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zl.Log(logger.LogEntry{
			Level:   "error",
			Message: "server crashed",
			Error:   err,
		})
	}

	// let in-flight jobs settle before exit
	svc.Wait()
}
