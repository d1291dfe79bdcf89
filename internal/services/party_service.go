package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/baharkarakas/checkflow/internal/auth"
	"github.com/baharkarakas/checkflow/internal/models"
	repo "github.com/baharkarakas/checkflow/internal/repository"
	"github.com/shopspring/decimal"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PartyService manages parties that log in. A party created earlier by name
// resolution can be claimed by registering under the same name.
type PartyService struct {
	users          repo.Users
	creds          repo.Credentials
	defaultBalance decimal.Decimal
	log            *slog.Logger
}

func NewPartyService(users repo.Users, creds repo.Credentials, defaultBalance decimal.Decimal, log *slog.Logger) *PartyService {
	if log == nil {
		log = slog.Default()
	}
	return &PartyService{users: users, creds: creds, defaultBalance: defaultBalance, log: log}
}

func (s *PartyService) Register(ctx context.Context, username, password string) (models.User, error) {
	if err := models.ValidateUsername(username); err != nil {
		return models.User{}, err
	}
	name := models.NormalizeUsername(username)

	u, err := s.users.FindByUsernameFold(ctx, name)
	switch {
	case err == nil:
		if _, err := s.creds.GetByUserID(ctx, u.ID); err == nil {
			return models.User{}, ErrUsernameTaken
		} else if !errors.Is(err, repo.ErrNotFound) {
			return models.User{}, fmt.Errorf("register %q: %w", name, err)
		}
	case errors.Is(err, repo.ErrNotFound):
		u, err = s.users.Create(ctx, name, s.defaultBalance)
		if errors.Is(err, repo.ErrConflict) {
			return models.User{}, ErrUsernameTaken
		}
		if err != nil {
			return models.User{}, fmt.Errorf("register %q: %w", name, err)
		}
	default:
		return models.User{}, fmt.Errorf("register %q: %w", name, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	if err := s.creds.Create(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("register %q: %w", name, err)
	}
	s.log.Info("party registered", "party_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks the password and returns the party. Unknown names and wrong
// passwords both yield ErrInvalidCredentials.
func (s *PartyService) Login(ctx context.Context, username, password string) (models.User, error) {
	u, err := s.users.FindByUsernameFold(ctx, models.NormalizeUsername(username))
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	c, err := s.creds.GetByUserID(ctx, u.ID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}
	if auth.VerifyPassword(password, c.PasswordHash) != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (s *PartyService) Get(ctx context.Context, id int64) (models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *PartyService) List(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.users.List(ctx, limit)
}
