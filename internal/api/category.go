package api

import (
	"fmt"
	"net/http"

	"petshop/internal/middleware"
	"petshop/internal/service"

	"github.com/gin-gonic/gin"
)

type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateCategoryRequest is a partial update; omitted fields are kept
type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

func ListCategoriesHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := catalog.ListCategories(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		resp := make([]CategoryResponse, len(cats))
		for i := range cats {
			resp[i] = toCategory(&cats[i])
		}
		c.JSON(http.StatusOK, resp)
	}
}

func GetCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		cat, err := catalog.GetCategory(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toCategory(cat))
	}
}

func CreateCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		cat, err := catalog.CreateCategory(c.Request.Context(), middleware.GetPrincipal(c), service.CategoryInput{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/api/categories/%d", cat.ID))
		c.JSON(http.StatusCreated, toCategory(cat))
	}
}

func UpdateCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req UpdateCategoryRequest
		if !bindJSON(c, &req) {
			return
		}
		patch := service.CategoryPatch{Name: req.Name, Description: req.Description}
		if err := catalog.UpdateCategory(c.Request.Context(), middleware.GetPrincipal(c), id, patch); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func DeleteCategoryHandler(catalog *service.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := catalog.DeleteCategory(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
			respondError(c, err) // 409 while it still owns products
			return
		}
		c.Status(http.StatusNoContent)
	}
}
