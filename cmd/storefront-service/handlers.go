package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ameliamart/storefront/internal/customer"
	"github.com/ameliamart/storefront/internal/order"
	"github.com/ameliamart/storefront/internal/payment"
	"github.com/ameliamart/storefront/internal/product"
	"github.com/ameliamart/storefront/internal/settings"
)

// ---------- checkout & orders ----------

func createOrderHandler(svc *order.Service, st settings.Repository, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		cfg, err := pricingConfig(c, st)
		if err != nil {
			log.Error("load settings", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process your order"})
			return
		}

		o, err := svc.Checkout(c.Request.Context(), req, cfg)
		if err != nil {
			writeCheckoutError(c, err, log)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

func pricingConfig(c *gin.Context, st settings.Repository) (order.PricingConfig, error) {
	s, err := st.Get(c.Request.Context())
	if err != nil {
		return order.PricingConfig{}, err
	}
	return order.PricingConfig{
		TaxRate:               s.TaxRate,
		ShippingFee:           s.ShippingFee,
		FreeShippingThreshold: s.FreeShippingThreshold,
	}, nil
}

func writeCheckoutError(c *gin.Context, err error, log *zap.Logger) {
	var stockErr *order.InsufficientStockError
	var missingErr *order.ProductNotFoundError
	switch {
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{"error": stockErr.Error()})
	case errors.As(err, &missingErr):
		c.JSON(http.StatusNotFound, gin.H{"error": missingErr.Error()})
	case errors.Is(err, order.ErrDuplicateNumber):
		// Already retried once inside the service.
		c.JSON(http.StatusConflict, gin.H{"error": "could not allocate an order number, please retry"})
	default:
		log.Error("create order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process your order"})
	}
}

func getOrderHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := repo.GetByNumber(c.Request.Context(), c.Param("number"))
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func listOrdersHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status == "all" {
			status = ""
		}
		limit := intQuery(c, "limit", 20)
		offset := intQuery(c, "offset", 0)
		out, err := repo.List(c.Request.Context(), status, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
			return
		}
		if out == nil {
			out = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"items": out, "limit": limit, "offset": offset})
	}
}

func updateOrderStatusHandler(repo order.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil || !order.ValidStatus(req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		o, err := repo.UpdateStatus(c.Request.Context(), c.Param("number"), req.Status)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update order"})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// ---------- payment ----------

type initializePaymentRequest struct {
	OrderNumber string `json:"order_number" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
}

func initializePaymentHandler(svc *payment.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req initializePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		data, err := svc.Initialize(c.Request.Context(), req.OrderNumber, req.Email)
		if err != nil {
			writePaymentError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

func verifyPaymentHandler(svc *payment.Service, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Query("reference")
		if reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment reference is required"})
			return
		}
		res, err := svc.Verify(c.Request.Context(), reference)
		if err != nil {
			writePaymentError(c, err, log)
			return
		}
		if !res.Paid {
			c.JSON(http.StatusBadRequest, res)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func writePaymentError(c *gin.Context, err error, log *zap.Logger) {
	var gwErr *payment.GatewayError
	switch {
	case errors.Is(err, payment.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": gwErr.Message})
	default:
		log.Error("payment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "payment request failed"})
	}
}

// ---------- customers ----------

func listCustomersHandler(repo customer.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := repo.ListWithStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch customers"})
			return
		}
		if out == nil {
			out = []customer.Stats{}
		}
		c.JSON(http.StatusOK, out)
	}
}

// ---------- products ----------

func listProductsHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := product.Query{
			Q:        c.Query("q"),
			Category: c.Query("category"),
			Limit:    intQuery(c, "limit", 50),
			Offset:   intQuery(c, "offset", 0),
		}
		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch products"})
			return
		}
		if items == nil {
			items = []product.Product{}
		}
		c.JSON(http.StatusOK, product.ListResponse{Q: q.Q, Limit: q.Limit, Offset: q.Offset, Items: items})
	}
}

func getProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch product"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req product.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		price, err := decimal.NewFromString(req.Price)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		p := &product.Product{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Price:       price,
			Category:    req.Category,
			Unit:        req.Unit,
			Stock:       req.Stock,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func updateProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req product.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		if req.Stock != nil && *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be non-negative"})
			return
		}
		p, err := repo.Update(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deleteProductHandler(repo product.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete product"})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ---------- settings & admin ----------

func getSettingsHandler(repo settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := repo.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch settings"})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

type updateSettingsRequest struct {
	StoreName             string  `json:"store_name"`
	StoreEmail            string  `json:"store_email"`
	StorePhone            string  `json:"store_phone"`
	StoreAddress          string  `json:"store_address"`
	Currency              string  `json:"currency"`
	TaxRate               float64 `json:"tax_rate" binding:"gte=0"`
	ShippingFee           float64 `json:"shipping_fee" binding:"gte=0"`
	FreeShippingThreshold float64 `json:"free_shipping_threshold" binding:"gte=0"`
	DeliveryTime          string  `json:"delivery_time"`
	PaystackSecretKey     string  `json:"paystack_secret_key"`
	PaystackPublicKey     string  `json:"paystack_public_key"`
}

func updateSettingsHandler(repo settings.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		s := &settings.Settings{
			StoreName:             req.StoreName,
			StoreEmail:            req.StoreEmail,
			StorePhone:            req.StorePhone,
			StoreAddress:          req.StoreAddress,
			Currency:              req.Currency,
			TaxRate:               decimal.NewFromFloat(req.TaxRate),
			ShippingFee:           decimal.NewFromFloat(req.ShippingFee),
			FreeShippingThreshold: decimal.NewFromFloat(req.FreeShippingThreshold),
			DeliveryTime:          req.DeliveryTime,
			PaystackSecretKey:     req.PaystackSecretKey,
			PaystackPublicKey:     req.PaystackPublicKey,
		}
		if err := repo.Update(c.Request.Context(), s); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

func adminLoginHandler(passwordHash []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
			return
		}
		if bcrypt.CompareHashAndPassword(passwordHash, []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
