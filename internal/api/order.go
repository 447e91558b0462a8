package api

import (
	"fmt"      // Location header
	"net/http" // HTTP status codes

	"petshop/internal/middleware" // Authenticated principal
	"petshop/internal/service"    // Order use cases

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateOrderHandler checks out the caller's cart
func CreateOrderHandler(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := orders.CreateOrder(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			respondError(c, err) // Empty cart or insufficient stock, nothing was written
			return
		}
		c.Header("Location", fmt.Sprintf("/api/orders/%d", order.ID))
		c.JSON(http.StatusCreated, toOrder(order))
	}
}

// GetOrdersHandler lists the caller's own orders, newest first
func GetOrdersHandler(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.GetOrders(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrders(list))
	}
}

// GetOrderHandler returns one of the caller's orders
func GetOrderHandler(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c) // Order id
		if !ok {
			return
		}
		order, err := orders.GetOrder(c.Request.Context(), middleware.GetPrincipal(c), id)
		if err != nil {
			respondError(c, err) // Someone else's order is a 404
			return
		}
		c.JSON(http.StatusOK, toOrder(order))
	}
}

// GetAllOrdersHandler lists every order in the system for managers
func GetAllOrdersHandler(orders *service.OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := orders.GetAllOrders(c.Request.Context(), middleware.GetPrincipal(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrders(list))
	}
}
