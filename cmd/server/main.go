package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/pharmaflow/config"
	v1 "github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/handler/v1"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/notify"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/repository/postgres"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/internal/service"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/auth"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/database"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/logger"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/metrics"
	"github.com/dmehra2102/prod-golang-projects/pharmaflow/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("loading config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("building logger: " + err.Error())
	}
	defer log.Sync()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		log.Fatal("initializing tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("connecting to database", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("migrating database", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	collector := metrics.NewCollector("pharmaflow")

	var notifier notify.Notifier
	switch cfg.Notify.Transport {
	case "kafka":
		kn, err := notify.NewKafkaNotifier(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic, log)
		if err != nil {
			log.Fatal("connecting Kafka notifier", zap.Error(err))
		}
		defer kn.Close()
		notifier = kn
	default:
		notifier = notify.NewLogNotifier(log)
	}

	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	unitOfWork := postgres.NewGormUnitOfWork(db)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	defer auditSvc.Shutdown()

	verificationSvc := service.NewVerificationService(prescriptionRepo, unitOfWork, service.RoleAdminCheck, notifier, auditSvc, collector, log)
	codeSvc := service.NewSecurityCodeService(prescriptionRepo, unitOfWork, service.RoleAdminCheck, auditSvc, collector, log)
	orderSvc := service.NewOrderService(orderRepo, prescriptionRepo, unitOfWork, service.RoleAdminCheck, notifier, auditSvc, collector, log)

	jwtMgr := auth.NewJWTManager(cfg.JWT)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.Metrics(collector))
	router.Use(middleware.RateLimit(cfg.RateLimit))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(jwtMgr))
	api.Use(middleware.Idempotency(rdb, cfg.Redis.IdempotencyTTL, log))
	v1.RegisterRoutes(api,
		v1.NewPrescriptionHandler(verificationSvc, codeSvc),
		v1.NewOrderHandler(orderSvc),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
