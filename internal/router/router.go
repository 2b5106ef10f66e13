package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"

	"seara_joias/internal/auth"
	"seara_joias/internal/config"
	"seara_joias/internal/lifecycle"
	"seara_joias/internal/middleware"
	"seara_joias/internal/notify"
	"seara_joias/internal/store"
)

// Deps carries everything the handlers close over. Constructed once at
// process start and passed by reference; no package-level state.
type Deps struct {
	Products *store.ProductStore
	Orders   *store.OrderStore
	Manager  *lifecycle.Manager
	Auth     *auth.Service
	Notifier *notify.Notifier
	Hub      *notify.Hub
	RDB      *rd.Client
	Cfg      config.AppConfig
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, d Deps) {
	r.Use(cors.Default())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	api := r.Group("/api")

	// Storefront, anonymous.
	api.GET("/products", listProducts(d))
	api.GET("/products/:id", getProduct(d))
	api.GET("/products/:id/stock", getProductStock(d))
	api.POST("/orders",
		middleware.RedisRateLimit(d.RDB, "checkout", d.Cfg.CheckoutRateLimit, d.Cfg.CheckoutRateWindow),
		createOrder(d))
	api.POST("/auth/login",
		middleware.RedisRateLimit(d.RDB, "login", d.Cfg.LoginRateLimit, d.Cfg.LoginRateWindow),
		login(d))

	// Back office.
	admin := api.Group("", middleware.RequireAuth(d.Auth))
	admin.POST("/products", createProduct(d))
	admin.PATCH("/products/:id", updateProduct(d))
	admin.DELETE("/products/:id", deleteProduct(d))
	admin.GET("/orders", listOrders(d))
	admin.GET("/orders/:id", getOrder(d))
	admin.PATCH("/orders/:id", updateOrder(d))
	admin.DELETE("/orders/:id", deleteOrder(d))
	admin.POST("/orders/:id/confirm", confirmOrder(d))
	admin.POST("/orders/:id/advance", advanceOrder(d))
	admin.POST("/orders/:id/cancel", cancelOrder(d))
	admin.GET("/admin/backup", exportBackup(d))
	admin.POST("/admin/backup/restore", restoreBackup(d))
	admin.GET("/admin/products/export", exportProductsXLSX(d))
	admin.POST("/admin/products/import", importProductsXLSX(d))
	admin.GET("/admin/orders/ws", orderFeed(d))
}

// fail renders the error envelope with the status the notifier assigns.
func fail(c *gin.Context, err error) {
	status, msg := notify.HTTPError(err)
	c.JSON(status, gin.H{"error": msg})
}
