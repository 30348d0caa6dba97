package memory

import (
	"chatrock/chatrock/sources/psql/dao"
	"chatrock/chatrock/sources/psql/models"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Users mirrors dao.UserDAO for servers running without a database.
type Users struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
}

func NewUsers() *Users {
	return &Users{
		byID:    make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (u *Users) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	user, ok := u.byID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (u *Users) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	user := u.byID[id]
	return &user, nil
}

func (u *Users) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	email = strings.ToLower(email)
	if _, exists := u.byEmail[email]; exists {
		return nil, dao.ErrUserExists
	}
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	u.byID[user.ID] = user
	u.byEmail[email] = user.ID
	return &user, nil
}
