package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"chatterbox/internal/adapter/api"
	"chatterbox/internal/adapter/api/handler"
	apimiddleware "chatterbox/internal/adapter/api/middleware"
	"chatterbox/internal/adapter/api/router"
	"chatterbox/internal/adapter/repository"
	domainrepo "chatterbox/internal/domain/repository"
	"chatterbox/internal/domain/service"
	"chatterbox/internal/infrastructure/firebase"
	"chatterbox/internal/infrastructure/metrics"
	"chatterbox/internal/infrastructure/ratelimit"
	"chatterbox/internal/infrastructure/storage"
	"chatterbox/internal/infrastructure/websocket"
	"chatterbox/internal/usecase"
	"chatterbox/pkg/config"
	"chatterbox/pkg/logger"
)

func credentials(cfg *config.Config) option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	}
	if cfg.FirebaseServiceAccountPath != "" {
		if _, err := os.Stat(cfg.FirebaseServiceAccountPath); os.IsNotExist(err) {
			logger.Fatal("Service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)
	}
	// Application default credentials
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if opt := credentials(cfg); opt != nil {
		opts = append(opts, opt)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{
		ProjectID:     cfg.FirebaseProject,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize Firebase Auth: %v", err)
	}

	firebaseAuthClient, err := firebase.NewFirebaseAuthClient(ctx, authClient, cfg.FirebaseApiKey)
	if err != nil {
		logger.Fatal("Failed to initialize identity toolkit: %v", err)
	}

	var (
		userRepo domainrepo.UserRepository
		chatRepo domainrepo.ChatRepository
		pinger   handler.Pinger
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		userRepo, chatRepo, pinger = store.Users(), store.Chats(), store
	default:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		userRepo = repository.NewFirestoreUserRepository(firestoreClient)
		chatRepo = repository.NewFirestoreChatRepository(firestoreClient)
		pinger = repository.NewFirestorePinger(firestoreClient)
	}

	var attachmentStore usecase.AttachmentStore
	if cfg.StorageBucket != "" {
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, cfg.AllowedOrigins, opts...)
		if err != nil {
			logger.Fatal("Failed to initialize Cloud Storage: %v", err)
		}
		defer storageClient.Close()
		attachmentStore = storageClient
	} else {
		logger.Warn("STORAGE_BUCKET not set; attachments are disabled")
	}

	var assistant usecase.AssistantService
	if cfg.GeminiApiKey != "" {
		gemini, err := service.NewGeminiService(ctx, cfg.GeminiApiKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatal("Failed to initialize Gemini: %v", err)
		}
		assistant = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set; assistant is disabled")
	}

	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine(ctx.Done())

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	authUseCase := usecase.NewAuthUseCase(userRepo, firebaseAuthClient, cfg.SessionTTL)
	userUseCase := usecase.NewUserUseCase(userRepo)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, rateLimiter)
	chatListUseCase := usecase.NewChatListUseCase(userRepo, chatRepo)
	messageUseCase := usecase.NewMessageUseCase(chatRepo, rateLimiter)
	friendUseCase := usecase.NewFriendUseCase(userRepo)
	assistUseCase := usecase.NewAssistUseCase(assistant)
	attachmentUseCase := usecase.NewAttachmentUseCase(chatRepo, attachmentStore)

	handler.Setup(
		authUseCase,
		userUseCase,
		chatUseCase,
		chatListUseCase,
		messageUseCase,
		friendUseCase,
		assistUseCase,
		attachmentUseCase,
		cfg.CookieSecure,
	)
	handler.SetupHealthHandler(pinger)
	handler.SetupWebSocketHandler(ctx, wsManager, websocket.SessionDeps{
		ChatList:       chatListUseCase,
		Messages:       messageUseCase,
		Friends:        friendUseCase,
		TypingTimeout:  cfg.TypingTimeout,
		SearchDebounce: cfg.SearchDebounce,
	}, cfg.AllowedOrigins)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.ClientUIDHeader},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Logger().Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(metrics.Middleware())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authUseCase, cfg.CookieSecure)

	router.Setup(e, authMiddleware, rateLimiter)
	router.SetupWebRouter(e, cfg.WebRoot)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
