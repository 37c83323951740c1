package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/apptbook/libs/db"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores user, assigning ID and CreatedAt. Emails are unique case-insensitively.
func (r *UserRepository) Create(ctx context.Context, user *User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at
	`, user.Name, normalizeEmail(user.Email), user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	if db.HasCode(err, db.CodeUniqueViolation) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `WHERE email = $1`, normalizeEmail(email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, `WHERE id::text = $1`, id)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, email, password_hash, created_at
		FROM users `+where, arg).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if db.IsNoRows(err) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// MemoryUserRepository backs local runs with STORAGE_DRIVER=memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[string]User{}, byEmail: map[string]string{}}
}

func (m *MemoryUserRepository) Create(_ context.Context, user *User) error {
	email := normalizeEmail(user.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return ErrEmailTaken
	}
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = time.Now().UTC()
	m.byID[user.ID] = *user
	m.byEmail[email] = user.ID
	return nil
}

func (m *MemoryUserRepository) GetByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *MemoryUserRepository) GetByID(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
