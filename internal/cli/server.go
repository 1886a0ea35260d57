package cli

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"vibecheck-service/internal/app"
	"vibecheck-service/internal/auth"
	"vibecheck-service/internal/config"
	"vibecheck-service/internal/infra/memory"
	"vibecheck-service/internal/infra/postgres"
	redisstore "vibecheck-service/internal/infra/redis"
	"vibecheck-service/internal/llm"
	"vibecheck-service/internal/logger"
	"vibecheck-service/internal/quizgen"
	"vibecheck-service/internal/scoring"
	transport "vibecheck-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

type quizBackend interface {
	app.QuizStore
	app.SubmissionStore
	app.SubmissionCounter
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	switch cfg.Server.Mode {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var backend quizBackend
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if err := runMigrationsWithDB(ctx, db, log); err != nil {
			return err
		}
		backend = postgres.NewStore(db)
		log.Info("using postgres store")
	} else {
		backend = memory.NewStore()
		log.Warn("postgres url not configured, using in-memory store")
	}

	var counter app.SubmissionCounter = backend
	if cfg.Postgres.AdminURL != "" {
		adminCounter, err := postgres.NewAdminCounter(ctx, cfg.Postgres.AdminURL)
		if err != nil {
			return err
		}
		defer adminCounter.Close()
		counter = adminCounter
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	attemptTTL := config.TTLDuration(cfg.Attempt.TTL, 24*time.Hour)
	var (
		quizRepo app.QuizRepository
		attempts app.AttemptStore
	)
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, backend, quizTTL, log)
		attempts = redisstore.NewAttemptStore(redisClient, attemptTTL)
	} else {
		quizRepo = memory.NewQuizRepository(backend, quizTTL)
		attempts = memory.NewAttemptStore(attemptTTL)
	}

	aiTimeout := config.TTLDuration(cfg.AI.Timeout, 60*time.Second)
	client, err := llm.New(ctx, llm.Options{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  aiTimeout,
	})
	switch {
	case errors.Is(err, llm.ErrMissingCredentials):
		log.Warn("ai api key not configured, generation and vibe analysis are disabled")
	case err != nil:
		return err
	}
	if closer, ok := client.(io.Closer); ok {
		defer closer.Close()
	}

	var verifier auth.TokenVerifier
	if v, err := auth.NewVerifier(auth.Options{
		Secret:       cfg.Auth.JWTSecret,
		PublicKeyPEM: cfg.Auth.PublicKeyPEM,
		Issuer:       cfg.Auth.Issuer,
	}); err != nil {
		log.Warn("token verification not configured, all callers are guests", "error", err)
	} else {
		verifier = v
	}

	quizzes := app.NewQuizService(backend, quizRepo, counter, quizgen.NewGenerator(client, cfg.AI.Model, log), log)
	submissions := app.NewSubmissionService(backend, quizRepo, attempts, scoring.NewAnalyzer(client, cfg.AI.Model, log), log)

	router := transport.NewRouter(transport.RouterOptions{
		Quizzes:     quizzes,
		Submissions: submissions,
		Verifier:    verifier,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
	})

	// Synchronous generation holds the response open for up to the AI timeout.
	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: aiTimeout + 30*time.Second,
	}

	go func() {
		log.Info("starting vibecheck service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
