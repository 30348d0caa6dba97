package controllers

import (
	"chatrock/chatrock/config"
	"chatrock/chatrock/middlewares"
	"chatrock/chatrock/sources/psql/models"
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
)

// UserStore is satisfied by dao.UserDAO and memory.Users.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
}

type AuthController struct {
	users UserStore
	cfg   config.Config
}

func NewAuthController(users UserStore, cfg config.Config) *AuthController {
	return &AuthController{users: users, cfg: cfg}
}

// Register creates the account and signs the new user in.
// Returns dao.ErrUserExists for a taken email.
func (c *AuthController) Register(ctx context.Context, req types.CredentialsRequest) (*types.SessionResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := c.users.CreateUser(ctx, req.Email, string(hash))
	if err != nil {
		return nil, err
	}
	return c.session(user)
}

func (c *AuthController) Login(ctx context.Context, req types.CredentialsRequest) (*types.SessionResponse, error) {
	req.Normalize()
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	user, err := c.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return c.session(user)
}

func (c *AuthController) session(user *models.User) (*types.SessionResponse, error) {
	token, err := middlewares.NewSessionToken(c.cfg.JWTSecret, user.ID, c.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &types.SessionResponse{Token: token, UserID: user.ID.String(), Email: user.Email}, nil
}
