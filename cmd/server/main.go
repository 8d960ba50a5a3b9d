package main

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"aizeeno/internal/auth"
	"aizeeno/internal/cache"
	"aizeeno/internal/chat"
	"aizeeno/internal/config"
	"aizeeno/internal/db"
	"aizeeno/internal/handler"
	"aizeeno/internal/identity"
	"aizeeno/internal/model"
	"aizeeno/internal/notify"
	"aizeeno/internal/provider"
	"aizeeno/internal/repository"
	"aizeeno/internal/router"
	"aizeeno/internal/service"
)

func main() {
	cfg := config.Load()

	e := echo.New()

	var userRepo repository.UserRepository
	var conversationRepo repository.ConversationRepository
	if cfg.DataBackend == "mysql" {
		gormDB, err := db.NewMySQL(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("database init: %v", err)
		}
		if err := gormDB.AutoMigrate(&model.User{}, &model.Conversation{}); err != nil {
			log.Fatalf("auto-migrate: %v", err)
		}
		userRepo = repository.NewUserRepository(gormDB)
		conversationRepo = repository.NewConversationRepository(gormDB)
	} else {
		log.Println("DATA_BACKEND=memory, records are not persisted across restarts")
		userRepo = repository.NewMemoryUserRepository()
		conversationRepo = repository.NewMemoryConversationRepository()
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	verifier := identity.NewGoogleVerifier(cfg.GoogleClientID)

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.SMTPHost != "" && cfg.SMTPUser != "" {
		notifier = notify.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	} else {
		log.Println("SMTP not configured, welcome emails disabled")
	}

	// External clients
	providerClient := provider.NewHTTPClient(cfg.ProviderAPIBase, cfg.ProviderSecretKey)
	chatClient := chat.NewHTTPClient(cfg.ChatAPIBase, cfg.ChatAPIKey, cfg.ChatModel)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, verifier, notifier)
	subscriptionService := service.NewSubscriptionService(userRepo, providerClient, cacheClient, cfg.ProviderWebhookSecret)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(chatClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, cfg.GoogleClientID)
	billingHandler := handler.NewBillingHandler(subscriptionService, cfg.ProviderPublishableKey, cfg.PlanCatalog())
	chatHandler := handler.NewChatHandler(chatService, conversationService)

	// Register routes
	router.Register(e, cfg, authHandler, billingHandler, chatHandler)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
