package api

import (
	"fmt"
	"net/http"
	"strconv"

	"petshop/internal/middleware"
	"petshop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=1000"`
	Price       *decimal.Decimal `json:"price" binding:"required"` // At least 0.01 with two decimals, checked by the service
	Stock       int              `json:"stock" binding:"min=0,max=2147483647"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=500"`
	CategoryID  uint             `json:"categoryId" binding:"required"`
}

// UpdateProductRequest is a partial update. An empty imageUrl removes the image.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=1000"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0,max=2147483647"`
	ImageURL    *string          `json:"imageUrl" binding:"omitempty,max=500"`
	CategoryID  *uint            `json:"categoryId"`
}

// ListProductsHandler lists products, optionally filtered by ?categoryId=
func ListProductsHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var categoryID *uint
		if raw := c.Query("categoryId"); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid categoryId"})
				return
			}
			cid := uint(id)
			categoryID = &cid
		}
		products, err := catalog.ListProducts(c.Request.Context(), categoryID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := make([]ProductResponse, len(products))
		for i := range products {
			resp[i] = toProduct(&products[i])
		}
		c.JSON(http.StatusOK, resp)
	}
}

func GetProductHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		p, err := catalog.GetProduct(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toProduct(p))
	}
}

func CreateProductHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateProductRequest
		if !bindJSON(c, &req) {
			return
		}
		p, err := catalog.CreateProduct(c.Request.Context(), middleware.GetPrincipal(c), service.ProductInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       *req.Price,
			Stock:       req.Stock,
			ImageURL:    req.ImageURL,
			CategoryID:  req.CategoryID,
		})
		if err != nil {
			respondError(c, err) // 400 when the category is missing
			return
		}
		c.Header("Location", fmt.Sprintf("/api/products/%d", p.ID))
		c.JSON(http.StatusCreated, toProduct(p))
	}
}

func UpdateProductHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req UpdateProductRequest
		if !bindJSON(c, &req) {
			return
		}
		patch := service.ProductPatch{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			ImageURL:    req.ImageURL,
			CategoryID:  req.CategoryID,
		}
		if err := catalog.UpdateProduct(c.Request.Context(), middleware.GetPrincipal(c), id, patch); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func DeleteProductHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := catalog.DeleteProduct(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			respondError(c, err) // 409 while carts or orders reference it
			return
		}
		c.Status(http.StatusNoContent)
	}
}
