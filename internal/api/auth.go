package api

import (
	"net/http" // HTTP status codes

	"petshop/internal/domain"  // Roles
	"petshop/internal/service" // Auth use cases

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for registration
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=100"` // Username must be provided
	Email    string `json:"email" binding:"required,max=150"`    // Email must be provided
	Password string `json:"password" binding:"required"`         // Password must be provided
	Role     string `json:"role"`                                // User or Manager, defaults to User
}

// Request struct for login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Token    string      `json:"token"` // JWT token
}

func toAuthResponse(res *service.AuthResult) AuthResponse {
	return AuthResponse{
		ID:       res.User.ID,
		Username: res.User.Username,
		Email:    res.User.Email,
		Role:     res.User.Role,
		Token:    res.Token,
	}
}

// RegisterHandler creates an account and returns it with a token
func RegisterHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		role := domain.Role(req.Role)
		if role == "" {
			role = domain.RoleUser // Customers are the default
		}
		res, err := auth.Register(c.Request.Context(), service.RegisterInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Role:     role,
		})
		if err != nil {
			respondError(c, err) // Duplicate, invalid role, bad email
			return
		}
		c.JSON(http.StatusOK, toAuthResponse(res))
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		res, err := auth.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err) // Invalid credentials
			return
		}
		c.JSON(http.StatusOK, toAuthResponse(res)) // Return the token in the response
	}
}
