package api

import (
	"net/http" // HTTP status codes

	"petshop/internal/domain"     // Roles
	"petshop/internal/middleware" // Auth, CORS and access log
	"petshop/internal/service"    // Use cases

	"github.com/gin-gonic/gin" // Gin web framework
)

// Deps is everything the router hands to its handlers
type Deps struct {
	Auth      *service.AuthService
	Catalog   *service.CatalogService
	Cart      *service.CartService
	Orders    *service.OrderService
	JWTSecret string
	Origins   []string
}

// NewRouter registers every route under /api plus the /healthz probe
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(d.Origins))

	// Set trusted proxies for Gin
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	apiGroup := r.Group("/api")

	// Auth routes
	apiGroup.POST("/auth/register", RegisterHandler(d.Auth)) // Registration endpoint
	apiGroup.POST("/auth/login", LoginHandler(d.Auth))       // Login endpoint

	// Catalog reads are public
	apiGroup.GET("/categories", ListCategoriesHandler(d.Catalog))
	apiGroup.GET("/categories/:id", GetCategoryHandler(d.Catalog))
	apiGroup.GET("/products", ListProductsHandler(d.Catalog))
	apiGroup.GET("/products/:id", GetProductHandler(d.Catalog))

	auth := middleware.JWTAuthMiddleware(d.JWTSecret)
	asUser := middleware.RequireRole(domain.RoleUser)
	asManager := middleware.RequireRole(domain.RoleManager)

	// Catalog writes (managers only)
	managerGroup := apiGroup.Group("", auth, asManager)
	managerGroup.POST("/categories", CreateCategoryHandler(d.Catalog))
	managerGroup.PUT("/categories/:id", UpdateCategoryHandler(d.Catalog))
	managerGroup.DELETE("/categories/:id", DeleteCategoryHandler(d.Catalog))
	managerGroup.POST("/products", CreateProductHandler(d.Catalog))
	managerGroup.PUT("/products/:id", UpdateProductHandler(d.Catalog))
	managerGroup.DELETE("/products/:id", DeleteProductHandler(d.Catalog))
	managerGroup.GET("/orders/all", GetAllOrdersHandler(d.Orders)) // Every customer's orders

	// Cart routes (customers only)
	cartGroup := apiGroup.Group("/cart", auth, asUser)
	cartGroup.GET("", GetCartHandler(d.Cart))               // Cart summary
	cartGroup.POST("", AddToCartHandler(d.Cart))            // Add or merge a line
	cartGroup.PUT("/:id", UpdateCartItemHandler(d.Cart))    // Set line quantity
	cartGroup.DELETE("/:id", RemoveFromCartHandler(d.Cart)) // Remove a line
	cartGroup.DELETE("", ClearCartHandler(d.Cart))          // Empty the cart

	// Order routes (customers only)
	orderGroup := apiGroup.Group("/orders", auth, asUser)
	orderGroup.GET("", GetOrdersHandler(d.Orders))    // Own order history
	orderGroup.GET("/:id", GetOrderHandler(d.Orders)) // One own order
	orderGroup.POST("", CreateOrderHandler(d.Orders)) // Checkout

	return r
}
