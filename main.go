package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coin-task-desk/config"
	"coin-task-desk/handlers"
	"coin-task-desk/middleware"
	"coin-task-desk/services"
	"coin-task-desk/stores"
	"coin-task-desk/utils"
	"coin-task-desk/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}
	defer store.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis: ", err)
		}
		defer rdb.Close()
	} else {
		log.Println("⚠️  REDIS_ADDR not set, fee idempotency and job locks are process-local")
	}

	engine := services.NewEngine(store, services.EngineConfig{
		StartingBalance: cfg.StartingBalance,
		AccessFee:       cfg.AccessFeeAmount,
		AdminEmails:     cfg.AdminEmails,
		MaxRetries:      services.DefaultEngineConfig.MaxRetries,
	}, services.WithFeeGuard(services.NewRedisFeeGuard(rdb, 24*time.Hour)))

	clock := workers.NewSessionClock(engine, cfg.AccessFeeInterval, cfg.SessionIdleTimeout, nil)
	go clock.Run(ctx, time.Second)

	var archiver *workers.LedgerArchiver
	r2 := utils.R2Config{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
		Bucket:          cfg.R2BucketName,
		CDNBaseURL:      cfg.CDNBaseURL,
	}
	if r2.Enabled() {
		uploader, err := utils.NewR2Uploader(ctx, r2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		archiver = workers.NewLedgerArchiver(store.Ledger(), uploader, nil)
	} else {
		log.Println("⚠️  R2 not configured, ledger archive disabled")
	}

	scheduler, err := workers.NewScheduler(engine, archiver, workers.NewLeaderLock(rdb, uuid.NewString()))
	if err != nil {
		log.Fatal("failed to create scheduler: ", err)
	}
	if err := scheduler.Start(ctx, cfg.SyncInterval, cfg.LedgerArchiveInterval); err != nil {
		log.Fatal("failed to start scheduler: ", err)
	}
	defer scheduler.Shutdown()

	app := fiber.New()

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))

	origins := strings.Join(cfg.Origins(), ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupRoutes(app, handlers.NewHandler(engine, services.NewSyncOrchestrator(engine), clock))

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
	log.Printf("✅ Expiry sweep every %s, access fee every %s", cfg.SyncInterval, cfg.AccessFeeInterval)
	log.Printf("✅ CORS configured for origins: %s", origins)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func openStore(cfg *config.Config) (stores.Store, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return stores.NewMemoryStore(), nil
	}
	return stores.OpenPostgres(cfg.DatabaseURL)
}
