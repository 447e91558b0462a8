package api

import (
	"net/http" // HTTP status codes

	"petshop/internal/middleware" // Authenticated principal
	"petshop/internal/service"    // Cart use cases

	"github.com/gin-gonic/gin" // Gin web framework
)

// AddToCartRequest represents an add-to-cart request
type AddToCartRequest struct {
	ProductID uint `json:"productId" binding:"required"`                     // Product to add
	Quantity  int  `json:"quantity" binding:"required,min=1,max=2147483647"` // How many to add
}

// UpdateCartItemRequest sets a line's quantity
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1,max=2147483647"` // New quantity
}

// GetCartHandler returns the caller's cart with live prices and totals
func GetCartHandler(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cart, err := carts.GetCart(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCart(cart)) // Return cart summary
	}
}

// AddToCartHandler adds a product, merging with an existing line for it
func AddToCartHandler(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddToCartRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		item, err := carts.AddToCart(c.Request.Context(), middleware.GetPrincipal(c), req.ProductID, req.Quantity)
		if err != nil {
			respondError(c, err) // 404 unknown product, 400 insufficient stock
			return
		}
		c.JSON(http.StatusOK, toCartItem(item)) // Return the merged line
	}
}

// UpdateCartItemHandler sets the quantity of one of the caller's lines
func UpdateCartItemHandler(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c) // Cart item id
		if !ok {
			return
		}
		var req UpdateCartItemRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		if err := carts.UpdateCartItem(c.Request.Context(), middleware.GetPrincipal(c), id, req.Quantity); err != nil {
			respondError(c, err) // 404 when the line is not the caller's
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RemoveFromCartHandler deletes one line; removing a missing line still succeeds
func RemoveFromCartHandler(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c) // Cart item id
		if !ok {
			return
		}
		if err := carts.RemoveFromCart(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ClearCartHandler empties the caller's cart
func ClearCartHandler(carts *service.CartService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := carts.ClearCart(c.Request.Context(), middleware.GetPrincipal(c)); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
