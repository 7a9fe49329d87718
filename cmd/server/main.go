package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/syndicateapp/syndicate/configs"
	"github.com/syndicateapp/syndicate/internal/api/handlers"
	"github.com/syndicateapp/syndicate/internal/api/middleware"
	job "github.com/syndicateapp/syndicate/internal/jobs"
	"github.com/syndicateapp/syndicate/internal/lifecycle"
	"github.com/syndicateapp/syndicate/internal/publisher"
	"github.com/syndicateapp/syndicate/internal/queue"
	"github.com/syndicateapp/syndicate/internal/repository"
	"github.com/syndicateapp/syndicate/internal/service"
	"github.com/syndicateapp/syndicate/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()
	inspector := asynq.NewInspector(redisConn)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	resultRepo := repository.NewPublishResultRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)

	registry := publisher.NewRegistry(
		publisher.NewFacebookPublisher(),
		publisher.NewInstagramPublisher(),
		publisher.NewTwitterPublisher(),
		publisher.NewLinkedinPublisher(),
		publisher.NewTiktokPublisher(),
		publisher.NewYoutubePublisher(),
	)

	history := queue.NewHistory(queue.CompletedHistorySize, queue.FailedHistorySize)
	publishQueue := queue.NewQueue(client, inspector, queue.LoggingObserver{}, history)

	machine := lifecycle.NewMachine(postRepo)
	credentialService := service.NewCredentialService(*cfg, socialAccountRepo)
	storage := service.NewR2Storage(*cfg)
	postService := service.NewPostService(db, postRepo, resultRepo, mediaAssetRepo, postMediaRepo, publishQueue, registry, storage)

	orchestrator := worker.NewOrchestrator(postRepo, resultRepo, postMediaRepo, mediaAssetRepo, machine, credentialService, registry)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/publish", post.PublishNow)
	api.Post("/posts/cancel", post.CancelSchedule)
	api.Get("/posts/status", post.PostStatus)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	account := handlers.NewAccountHandler(socialAccountRepo)
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/remove", account.DeleteSocialAccount)

	queueHandler := handlers.NewQueueHandler(history)
	api.Get("/queue/recent", queueHandler.RecentJobs)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, credentialService)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency:    cfg.WorkerConcurrency,
			RetryDelayFunc: queue.RetryDelay,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, publishQueue.Handler(orchestrator))

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
