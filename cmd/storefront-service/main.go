package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ameliamart/storefront/internal/config"
	"github.com/ameliamart/storefront/internal/customer"
	"github.com/ameliamart/storefront/internal/httpx"
	"github.com/ameliamart/storefront/internal/logx"
	"github.com/ameliamart/storefront/internal/order"
	"github.com/ameliamart/storefront/internal/payment"
	"github.com/ameliamart/storefront/internal/product"
	"github.com/ameliamart/storefront/internal/settings"
)

func main() {
	cfg := config.Load()
	logger := logx.New("storefront")
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	fallback := settings.Defaults()
	fallback.PaystackSecretKey = cfg.PaystackSecretKey
	settingsRepo := settings.NewPGRepo(pool, fallback)

	productRepo := product.NewPGRepo(pool)
	customerRepo := customer.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool)
	checkout := order.NewService(orderRepo, logger)

	gateway := payment.NewClient(cfg.PaystackBaseURL, func(ctx context.Context) string {
		st, err := settingsRepo.Get(ctx)
		if err != nil {
			logger.Error("load settings for gateway secret", zap.Error(err))
			return ""
		}
		return st.PaystackSecretKey
	})
	payments := payment.NewService(gateway, orderRepo, settingsRepo, cfg.CallbackBaseURL, logger)

	adminHash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("hash admin password", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(logger))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	r.GET("/products", listProductsHandler(productRepo))
	r.GET("/products/:id", getProductHandler(productRepo))
	r.GET("/settings", getSettingsHandler(settingsRepo))

	r.POST("/orders", createOrderHandler(checkout, settingsRepo, logger))
	r.GET("/orders/:number", getOrderHandler(orderRepo))

	r.POST("/payment/initialize", initializePaymentHandler(payments, logger))
	r.GET("/payment/verify", verifyPaymentHandler(payments, logger))

	r.POST("/admin/login", adminLoginHandler(adminHash))

	admin := r.Group("/", httpx.AdminAuth(adminHash))
	admin.GET("/orders", listOrdersHandler(orderRepo))
	admin.PUT("/orders/:number/status", updateOrderStatusHandler(orderRepo))
	admin.GET("/customers", listCustomersHandler(customerRepo))
	admin.POST("/products", createProductHandler(productRepo))
	admin.PUT("/products/:id", updateProductHandler(productRepo))
	admin.DELETE("/products/:id", deleteProductHandler(productRepo))
	admin.PUT("/settings", updateSettingsHandler(settingsRepo))

	logger.Info("storefront-service listening", zap.String("addr", cfg.Addr))
	if err := r.Run(cfg.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
