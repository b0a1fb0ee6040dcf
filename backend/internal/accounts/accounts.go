package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/nftmarket/backend/internal/auth"
	"github.com/user/nftmarket/backend/internal/models"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("username and password cannot be empty")
)

// Store persists user accounts. Lookups return nil, nil when nothing matches.
type Store interface {
	CreateUser(ctx context.Context, username string, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service signs users up and logs them in.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Signup creates an account. The account id becomes the user's principal.
func (s *Service) Signup(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking username %s: %w", username, err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, username, hash)
}

// Login returns the user when the password matches.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error finding user %s: %w", username, err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// MemoryStore keeps accounts in process.
type MemoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUsername: make(map[string]*models.User)}
}

func (m *MemoryStore) CreateUser(_ context.Context, username string, passwordHash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byUsername[username]; ok {
		return nil, ErrUsernameTaken
	}
	user := &models.User{
		ID:        uuid.New(),
		Username:  username,
		Password:  passwordHash,
		CreatedAt: time.Now().UTC(),
	}
	m.byUsername[username] = user
	cp := *user
	return &cp, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byUsername[username]
	if !ok {
		return nil, nil
	}
	cp := *user
	return &cp, nil
}
