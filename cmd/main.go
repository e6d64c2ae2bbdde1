package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"carservice-app/internal/config"
	"carservice-app/internal/handler"
	"carservice-app/internal/repository"
	"carservice-app/internal/services"
	"carservice-app/internal/utils"
	"carservice-app/internal/utils/push"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// MongoDB
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	// Redis
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid Redis URL:", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return rdb.Close()
	})

	// Optional integrations
	var fcmClient *push.FCMClient
	if cfg.FCMCredentialsFile != "" {
		fcmClient, err = push.NewFCMClient(ctx, cfg.FCMCredentialsFile)
		if err != nil {
			log.Printf("FCM disabled: %v", err)
		}
	}

	var smsClient *utils.SMSClient
	if cfg.TwilioAccountSID != "" {
		smsClient = utils.NewSMSClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}

	var minioClient *minio.Client
	if cfg.MinioEndpoint != "" {
		minioClient, err = utils.NewMinioClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket)
		if err != nil {
			log.Printf("MinIO disabled: %v", err)
		}
	}

	var mailer services.EmailService
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}

	// Repositories and services
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewServiceRequestRepository(db)
	chatRepo := repository.NewChatRepository(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("Failed to ensure user indexes: %v", err)
	}

	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret)
	googleAuth := services.NewGoogleAuthService(cfg.GoogleClientID)
	cache := utils.WrapRedisClient(rdb)

	notifier := services.NewPushNotifier(userRepo, fcmClient, smsClient)
	authService := services.NewAuthService(userRepo, jwtUtil, mailer, googleAuth, cache, rdb)
	requestService := services.NewServiceRequestService(requestRepo, rdb, notifier)
	chatService := services.NewChatService(chatRepo, requestRepo, rdb, notifier)

	authHandler := handler.NewAuthHandler(authService, minioClient, cfg.MinioBucket)
	requestHandler := handler.NewServiceRequestHandler(requestService)
	chatHandler := handler.NewChatHandler(chatService)
	streamHandler := handler.NewStreamHandler(requestService, chatService)

	// Router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMW := utils.AuthMiddleware(jwtUtil, cache)

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/google-login", authHandler.GoogleLogin)
		auth.POST("/logout", authHandler.Logout)

		protected := auth.Group("/")
		protected.Use(authMW)
		{
			protected.GET("/profile", authHandler.GetProfile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.POST("/profile/photo", authHandler.UploadProfilePhoto)
			protected.PUT("/device-token", authHandler.UpdateDeviceToken)
		}
	}

	requests := router.Group("/api/requests")
	requests.Use(authMW)
	{
		requests.POST("/", utils.RequireRoles("client"), requestHandler.CreateRequest)
		requests.GET("/my", utils.RequireRoles("client"), requestHandler.GetMyRequests)
		requests.GET("/:id", requestHandler.GetRequest)
		requests.POST("/:id/notes", requestHandler.AddNote)

		employee := requests.Group("/")
		employee.Use(utils.RequireRoles("employee"))
		{
			employee.GET("/available", requestHandler.GetAvailableRequests)
			employee.GET("/assigned", requestHandler.GetAssignedRequests)
			employee.GET("/all", requestHandler.GetAllRequests)
			employee.PUT("/:id/accept", requestHandler.AcceptRequest)
			employee.PUT("/:id/status", requestHandler.UpdateStatus)
		}
	}

	chat := router.Group("/api/chat")
	chat.Use(authMW)
	{
		chat.POST("/:requestId/messages", chatHandler.SendMessage)
		chat.GET("/:requestId/messages", chatHandler.GetMessages)
		chat.PUT("/:requestId/read", chatHandler.MarkRead)
		chat.GET("/:requestId/unread", chatHandler.UnreadCount)
	}

	ws := router.Group("/ws")
	ws.Use(authMW)
	{
		ws.GET("/requests", streamHandler.WatchRequests)
		ws.GET("/requests/:id", streamHandler.WatchRequest)
		ws.GET("/chat/:requestId", streamHandler.WatchChat)
		ws.GET("/chat/:requestId/unread", streamHandler.WatchUnread)
	}

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Car service running on", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	select {}
}
