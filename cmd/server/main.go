package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docuvault/document-service/cmd/middleware"
	"github.com/docuvault/document-service/internal/api"
	"github.com/docuvault/document-service/internal/api/handlers"
	"github.com/docuvault/document-service/internal/configuration"
	"github.com/docuvault/document-service/internal/logging"
	"github.com/docuvault/document-service/internal/scan"
	"github.com/docuvault/document-service/internal/services"
	"github.com/docuvault/document-service/internal/storage"
	"github.com/gin-gonic/gin"
	gintrace "gopkg.in/DataDog/dd-trace-go.v1/contrib/gin-gonic/gin"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {
	cfg := configuration.Load()
	log := logging.New(cfg.LogLevel)

	tracer.Start(tracer.WithService("document-service"))
	defer tracer.Stop()

	pg, err := storage.Connect(cfg.Database.ConnectionString(), log)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pg.Close()

	content, err := services.NewMinioStore(
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.BucketName,
		cfg.MinIO.UseSSL,
		log,
	)
	if err != nil {
		log.Fatalf("failed to initialize MinIO: %v", err)
	}

	queue, err := services.ConnectNATS(cfg.NATSURL, log)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}
	defer queue.Close()

	auditor := services.NewAuditor(pg, log)
	documents := services.NewDocumentService(pg, content, queue, auditor, log)
	sharing := services.NewSharingService(pg, documents, auditor, cfg.PublicBaseURL, log)

	var scanner scan.Scanner
	switch cfg.Scanner {
	case "clamav":
		scanner = scan.NewClamAVScanner(cfg.ClamAVURL, log)
	default:
		log.Warn("using simulated antivirus scanner")
		scanner = scan.SimulatedScanner{}
	}

	worker := scan.NewWorker(documents, content, scanner, log)
	sub, err := queue.SubscribeScans(func(task services.ScanTask) error {
		return worker.Process(context.Background(), task.DocumentID)
	})
	if err != nil {
		log.Fatalf("failed to subscribe scan worker: %v", err)
	}
	defer func() { _ = sub.Drain() }()

	if err := middleware.InitAuth(cfg.OIDCIssuerURL, log); err != nil {
		log.Fatalf("failed to initialize auth: %v", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gintrace.Middleware("document-service"))

	api.RegisterRoutes(r, handlers.New(documents, sharing, auditor, log), middleware.RequireAuth())

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Infof("server starting on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
}
