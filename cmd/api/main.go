package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"craftex/internal/adapter/api"
	"craftex/internal/adapter/api/handler"
	apimiddleware "craftex/internal/adapter/api/middleware"
	"craftex/internal/adapter/api/router"
	"craftex/internal/adapter/repository"
	"craftex/internal/infrastructure/keylock"
	"craftex/internal/infrastructure/seencache"
	"craftex/internal/infrastructure/websocket"
	"craftex/internal/usecase"
	"craftex/pkg/config"
	"craftex/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	serviceRequestRepo := repository.NewFirestoreServiceRequestRepository(firestoreClient)
	deliveryRepo := repository.NewFirestoreDeliveryRepository(firestoreClient)
	orderRepo := repository.NewFirestoreOrderRepository(firestoreClient)

	var seenStore seencache.Store
	if cfg.RedisURL != "" {
		redisStore, err := seencache.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		seenStore = redisStore
	} else {
		logger.Warn("REDIS_URL not set, seen receipts will not survive restarts")
		seenStore = seencache.NewMemoryStore()
	}
	defer seenStore.Close()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	locks := keylock.New()

	conversationUseCase := usecase.NewConversationUseCase(conversationRepo, userRepo, seenStore, wsManager, locks)
	serviceRequestUseCase := usecase.NewServiceRequestUseCase(serviceRequestRepo, conversationRepo, wsManager, locks)
	deliveryUseCase := usecase.NewDeliveryUseCase(deliveryRepo, serviceRequestRepo, orderRepo, conversationRepo, wsManager, locks)

	wsManager.SetMarkSeenFunc(conversationUseCase.MarkMessageSeen)

	reconciler := usecase.NewReconciler(deliveryUseCase, wsManager, time.Duration(cfg.ReconcileInterval)*time.Second)
	go reconciler.Run(ctx)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	conversationHandler := handler.NewConversationHandler(conversationUseCase)
	serviceRequestHandler := handler.NewServiceRequestHandler(serviceRequestUseCase)
	deliveryHandler := handler.NewDeliveryHandler(deliveryUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware)

	router.Setup(e, authMiddleware, conversationHandler, serviceRequestHandler, deliveryHandler, wsHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
