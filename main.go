package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"inbox-service/internal/config"
	"inbox-service/internal/db"
	"inbox-service/internal/grpcserver"
	"inbox-service/internal/handlers"
	"inbox-service/internal/middleware"
	"inbox-service/internal/observability"
	"inbox-service/internal/rabbitmq"
	"inbox-service/internal/realtime"
	"inbox-service/internal/repositories"
	"inbox-service/internal/services"
	"inbox-service/internal/telemetry"
	"inbox-service/internal/ws"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("invalid timezone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, rabbitmq.RoutingAudit, cfg.ServiceName, cfg.Environment)

	rt := realtime.NewHub()
	go func() {
		if err := realtime.NewListener(cfg.DBDSN, rt).Run(ctx); err != nil {
			log.Printf("realtime listener stopped: %v", err)
		}
	}()

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	inboxService := services.NewInboxService(userRepo, messageRepo, rt, publisher, loc, cfg.PageLimit)

	validator := middleware.NewTokenValidator(cfg.JWTSecret)
	userHandler := handlers.NewUserHandler(inboxService, audit)
	conversationHandler := handlers.NewConversationHandler(inboxService, audit)
	wsHub := ws.NewHub()
	wsHandler := ws.NewHandler(wsHub, rt, inboxService, validator)

	router := gin.New()

	// middlewares
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())
	router.Use(handlers.RequestIDMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(validator)

	router.GET("/users", authMiddleware, userHandler.ListUsers)
	router.GET("/users/:user_id", authMiddleware, userHandler.GetUser)
	router.PUT("/profile", authMiddleware, userHandler.UpdateProfile)

	router.GET("/inbox", authMiddleware, conversationHandler.GetInbox)
	router.GET("/conversations/:peer_id/messages", authMiddleware, conversationHandler.GetMessages)
	router.POST("/conversations/:peer_id/messages", authMiddleware, conversationHandler.PostMessage)
	router.POST("/conversations/:peer_id/read", authMiddleware, conversationHandler.MarkRead)

	router.GET("/ws/inbox", wsHandler.Inbox)
	router.GET("/ws/conversations/:peer_id", wsHandler.Conversation)

	handlers.RegisterDebugRoutes(router.Group("", authMiddleware), audit, wsHub, cfg.DebugRoutes)

	grpcSrv := grpcserver.New()
	grpcSrv.Refresh(ctx, database)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("failed to listen on grpc port: %v", err)
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Printf("grpc server error: %v", err)
		}
	}()
	go func() {
		ticker := time.NewTicker(healthInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				grpcSrv.Refresh(ctx, database)
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("inbox-service listening http=%s grpc=%s", cfg.Port, cfg.GRPCPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsHub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
	grpcSrv.Stop()
	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Printf("tracer shutdown error: %v", err)
		}
	}
}
