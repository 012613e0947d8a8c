package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tavolo/internal/caching"
	"tavolo/internal/config"
	"tavolo/internal/handlers"
	"tavolo/internal/jobs"
	appmiddleware "tavolo/internal/middleware"
	"tavolo/internal/repositories"
	"tavolo/internal/services"
	"tavolo/pkg/database"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	cacheSvc := caching.NewRedisCacheService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	var receiptSvc services.ReceiptService
	if cfg.MinioEndpoint != "" {
		receiptSvc, err = services.NewReceiptService(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL, cfg.ReceiptBucket)
		if err != nil {
			log.Printf("WARN: receipt archive disabled: %v", err)
		}
	} else {
		log.Println("MINIO_ENDPOINT not set, receipt archive disabled")
	}

	// Repositories
	itemRepo := repositories.NewItemRepo(pool)
	orderRepo := repositories.NewOrderRepo(pool)
	orderItemRepo := repositories.NewOrderItemRepo(pool)
	historyRepo := repositories.NewInventoryHistoryRepo(pool)
	categoryRepo := repositories.NewCategoryRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Services
	stockSvc := services.NewStockService(pool, itemRepo, historyRepo, cacheSvc)
	orderSvc := services.NewOrderService(pool, orderRepo, orderItemRepo, itemRepo, historyRepo, receiptSvc, cacheSvc)
	itemSvc := services.NewItemService(pool, itemRepo, historyRepo, cacheSvc)
	authSvc := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)

	// Handlers
	orderHandlers := handlers.NewOrderHandlers(orderSvc, stockSvc)
	itemHandlers := handlers.NewItemHandlers(itemSvc)
	stockHandlers := handlers.NewStockHandlers(stockSvc)
	categoryHandlers := handlers.NewCategoryHandlers(categoryRepo)
	authHandlers := handlers.NewAuthHandlers(authSvc)
	healthHandlers := handlers.NewHealthHandlers(pool)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Public routes
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.POST("/v1/auth/login", authHandlers.Login)

	// Authenticated routes
	v1 := e.Group("/v1", appmiddleware.JWTMiddleware(cfg.JWTSecret))

	v1.POST("/orders", orderHandlers.CreateOrder)
	v1.POST("/orders/cash", orderHandlers.CreateCashOrder)
	v1.POST("/orders/validate", orderHandlers.ValidateOrder)
	v1.GET("/orders", orderHandlers.GetOrders)
	v1.GET("/orders/:id", orderHandlers.GetOrder)
	v1.PUT("/orders/:id/status", orderHandlers.UpdateOrderStatus)
	v1.POST("/orders/:id/cancel", orderHandlers.CancelOrder)

	v1.POST("/items", itemHandlers.CreateItem)
	v1.GET("/items", itemHandlers.GetItems)
	v1.GET("/items/search", itemHandlers.SearchItems)
	v1.GET("/items/low-stock", stockHandlers.GetLowStockItems)
	v1.GET("/items/:id", itemHandlers.GetItem)
	v1.PUT("/items/:id", itemHandlers.UpdateItem)
	v1.DELETE("/items/:id", itemHandlers.DeleteItem)
	v1.PUT("/items/:id/stock", stockHandlers.AdjustStock)
	v1.GET("/items/:id/history", stockHandlers.GetStockHistory)
	v1.GET("/items/:id/stock/reconstruct", stockHandlers.ReconstructStock)

	v1.POST("/categories", categoryHandlers.CreateCategory)
	v1.GET("/categories", categoryHandlers.GetCategories)
	v1.GET("/categories/:id", categoryHandlers.GetCategory)
	v1.PUT("/categories/:id", categoryHandlers.UpdateCategory)
	v1.DELETE("/categories/:id", categoryHandlers.DeleteCategory)

	// Background jobs
	sweeper, err := jobs.NewLowStockSweeper(itemRepo, cfg.LowStockSweepInterval)
	if err != nil {
		log.Fatalf("Failed to create low stock sweeper: %v", err)
	}
	if err := sweeper.Start(); err != nil {
		log.Fatalf("Failed to start low stock sweeper: %v", err)
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server listening on port %s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sweeper.Stop(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
