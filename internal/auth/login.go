package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nikhilbhutani/audioreader/internal/models"
	"github.com/nikhilbhutani/audioreader/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	users  UserStore
	issuer *Issuer
}

func NewService(users UserStore, issuer *Issuer) *Service {
	return &Service{users: users, issuer: issuer}
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login checks the password against the stored bcrypt hash and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
