package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/docweave/backend/internal/config"
	"github.com/docweave/backend/internal/repository/identity"
	redisrepo "github.com/docweave/backend/internal/repository/redis"
	"github.com/docweave/backend/internal/service/token"
	transportHttp "github.com/docweave/backend/internal/transport/http"
	"github.com/docweave/backend/internal/transport/http/middleware"
	"github.com/docweave/backend/internal/transport/websocket"
	"github.com/docweave/backend/pkg/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	// 1. Load and validate configuration. A missing signing secret is fatal
	// here, before anything serves traffic.
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// 2. Optional Redis (refresh-token denylist). Unreachable Redis degrades
	// to stateless rotation instead of failing startup.
	var cache token.CacheRepository
	if cfg.RedisURL != "" {
		redisClient, err := redisrepo.NewClient(cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Printf("[REDIS] Warning: Could not connect to Redis: %v. Running without refresh-token revocation.", err)
		} else {
			defer redisClient.Close()
			cache = redisrepo.NewCache(redisClient)
		}
	}

	// 3. Credential issuer: upstream identity verification + token signing.
	verifier := identity.NewClient(cfg.IdentityVerifyURL)
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	tokenService := token.NewService(verifier, tokenManager, cache)

	// 4. Relay: one registry instance owned here, injected into the handler.
	registry := websocket.NewRegistry()
	wsHandler := websocket.NewHandler(registry, tokenManager, cfg.SendBufferSize)

	// 5. HTTP surface.
	authHandler := transportHttp.NewAuthHandler(tokenService)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.POST("/auth/exchange", authHandler.Exchange)
	router.POST("/auth/refresh", authHandler.Refresh)

	// Relay upgrade endpoint (access token checked during the handshake)
	router.GET("/ws", wsHandler.HandleWebSocket)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
