package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"cypher-service/internal/cleanup"
	"cypher-service/internal/config"
	"cypher-service/internal/db"
	"cypher-service/internal/handlers"
	"cypher-service/internal/middleware"
	"cypher-service/internal/notify"
	"cypher-service/internal/observability"
	"cypher-service/internal/payment"
	"cypher-service/internal/rabbitmq"
	"cypher-service/internal/repositories"
	"cypher-service/internal/security"
	"cypher-service/internal/services"
	"cypher-service/internal/syncstore"
	"cypher-service/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, "cypher-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	store := syncstore.NewFromURL(ctx, cfg.RedisURL)
	defer store.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	userRepo := repositories.NewUserRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	outboxRepo := repositories.NewOutboxRepo(database)

	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	verifier := payment.NewHTTPVerifier(cfg.PaymentVerifyURL)
	fanout := notify.NewFanout(userRepo, notificationRepo, publisher, "notifications")

	userService := services.NewUserService(userRepo, notificationRepo, tokens)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, userRepo, verifier, fanout, cfg.MaxGroupFreeSize)
	messageService := services.NewMessageService(conversationRepo, messageRepo, fanout)

	hub := ws.NewHub()

	authHandler := handlers.NewAuthHandler(userService)
	profileHandler := handlers.NewProfileHandler(userService)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	messageHandler := handlers.NewMessageHandler(messageService, hub)
	employeeHandler := handlers.NewEmployeeHandler(userService)
	conversationWS := ws.NewConversationWebSocketHandler(hub, conversationRepo, tokens)

	sweeper := cleanup.NewSweeper(messageService, cfg.SweepInterval)
	go sweeper.Run(ctx)

	projector := syncstore.NewProjector(outboxRepo, store, cfg.ProjectInterval)
	go projector.Run(ctx)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware("cypher-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	auth := router.Group("/", middleware.Auth(tokens))
	auth.POST("/auth/logout", authHandler.Logout)

	auth.GET("/me", profileHandler.Me)
	auth.PUT("/me", profileHandler.Update)
	auth.GET("/users/search", profileHandler.Search)
	auth.GET("/notifications", profileHandler.Notifications)
	auth.POST("/notifications/:notification_id/read", profileHandler.MarkNotificationRead)

	auth.POST("/conversations", conversationHandler.Create)
	auth.GET("/conversations", conversationHandler.List)
	auth.GET("/conversations/:conversation_id", conversationHandler.Get)
	auth.GET("/conversations/:conversation_id/members", conversationHandler.Members)
	auth.POST("/conversations/:conversation_id/members", conversationHandler.AddParticipants)
	auth.DELETE("/conversations/:conversation_id/members", conversationHandler.RemoveParticipants)
	auth.POST("/conversations/:conversation_id/leave", conversationHandler.Leave)
	auth.PUT("/conversations/:conversation_id/name", conversationHandler.Rename)
	auth.PUT("/conversations/:conversation_id/pin", conversationHandler.Pin)
	auth.PUT("/conversations/:conversation_id/permissions", conversationHandler.SetMemberPermissions)
	auth.POST("/conversations/:conversation_id/admins", conversationHandler.PromoteAdmin)
	auth.DELETE("/conversations/:conversation_id", conversationHandler.Delete)
	auth.POST("/conversations/:conversation_id/clear", conversationHandler.Clear)
	auth.POST("/conversations/:conversation_id/read", conversationHandler.MarkRead)

	auth.GET("/conversations/:conversation_id/messages", messageHandler.List)
	auth.POST("/conversations/:conversation_id/messages", messageHandler.Send)
	auth.PUT("/conversations/:conversation_id/messages/:message_id", messageHandler.Edit)
	auth.DELETE("/conversations/:conversation_id/messages/:message_id", messageHandler.Delete)

	employee := router.Group("/employee", middleware.Auth(tokens), middleware.RequireEmployee(userRepo))
	employee.PUT("/users/:user_id/grants", employeeHandler.GrantFreeCreations)
	employee.POST("/users/:user_id/promote", employeeHandler.Promote)
	employee.DELETE("/users/:user_id", employeeHandler.DeleteAccount)

	router.GET("/ws/conversations/:conversation_id", conversationWS.Handle)

	handlers.RegisterDebugRoutes(employee, userRepo, conversationRepo, messageRepo,
		rabbitmq.PublisherMode(publisher), syncstore.Mode(store), cfg.Debug)

	log.Printf("cypher service listening on :%s (env=%s sync=%s publisher=%s)",
		cfg.Port, cfg.Env, syncstore.Mode(store), rabbitmq.PublisherMode(publisher))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
