package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"petshop/internal/domain"
	"petshop/internal/repository"
	"petshop/internal/utils"

	"github.com/sirupsen/logrus"
)

const errBadCredentials = "invalid email or password"

// RegisterInput is a new account request
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
}

// AuthResult is the profile plus a freshly issued token
type AuthResult struct {
	User  *domain.User
	Token string
}

// AuthService registers accounts and issues tokens
type AuthService struct {
	users  repository.UserRepository
	secret string
	ttl    time.Duration
}

func NewAuthService(users repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, ttl: ttl}
}

// Register creates an account with a hashed password and logs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	emailTaken, usernameTaken, err := s.users.UserTaken(ctx, in.Email, in.Username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if emailTaken {
		return nil, domain.Conflict("email is already registered")
	}
	if usernameTaken {
		return nil, domain.Conflict("username is already taken")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Username: in.Username, Email: in.Email, PasswordHash: hash, Role: in.Role}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race against a concurrent registration
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.Conflict("email or username is already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("User registered")
	return s.issue(user)
}

// Login checks credentials and issues a token. Unknown email and wrong password fail
// the same way and take about the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return nil, domain.Unauthorized(errBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		logrus.WithField("user_id", user.ID).Warn("Login failed")
		return nil, domain.Unauthorized(errBadCredentials)
	}

	logrus.WithField("user_id", user.ID).Info("User logged in")
	return s.issue(user)
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, err := utils.GenerateJWT(user.ID, user.Role, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func validateRegistration(in RegisterInput) error {
	if !in.Role.Valid() {
		return domain.InvalidInput("invalid role: only %s or %s are allowed", domain.RoleUser, domain.RoleManager)
	}
	if in.Username == "" || len(in.Username) > 100 {
		return domain.InvalidInput("username must be 1-100 characters")
	}
	if len(in.Email) > 150 {
		return domain.InvalidInput("email must be at most 150 characters")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return domain.InvalidInput("email is not valid")
	}
	if in.Password == "" {
		return domain.InvalidInput("password is required")
	}
	return nil
}
