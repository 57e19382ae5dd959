package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"cypher-service/internal/domain"
	"cypher-service/internal/models"
	"cypher-service/internal/repositories"
	"cypher-service/internal/security"
)

// UserService implements registration, sessions, profiles and the employee
// account operations.
type UserService struct {
	users         repositories.UserRepository
	notifications repositories.NotificationRepository
	tokens        *security.TokenManager
}

// NewUserService constructs a UserService.
func NewUserService(users repositories.UserRepository, notifications repositories.NotificationRepository, tokens *security.TokenManager) *UserService {
	return &UserService{users: users, notifications: notifications, tokens: tokens}
}

// Register creates an account for a new cypherTag and issues a session token.
func (s *UserService) Register(ctx context.Context, cypherTag, password string) (models.User, string, error) {
	cypherTag = strings.TrimSpace(cypherTag)
	if cypherTag == "" || password == "" {
		return models.User{}, "", fmt.Errorf("cypher_tag and password are required: %w", domain.ErrBadRequest)
	}
	if len(password) < 8 {
		return models.User{}, "", fmt.Errorf("password must be at least 8 characters: %w", domain.ErrBadRequest)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		CypherTag:    cypherTag,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return models.User{}, "", fmt.Errorf("cypher_tag already taken: %w", domain.ErrConflict)
		}
		return models.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	stored, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return stored, token, nil
}

// Login checks the credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, cypherTag, password string) (models.User, string, error) {
	user, err := s.users.GetByTag(ctx, strings.TrimSpace(cypherTag))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return models.User{}, "", err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		return models.User{}, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.users.SetOnline(ctx, user.ID, true); err != nil {
		return models.User{}, "", err
	}
	user.Online = true
	return user, token, nil
}

// Logout marks the user offline. The token itself simply ages out.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.users.SetOnline(ctx, userID, false)
}

// Get fetches a user by id.
func (s *UserService) Get(ctx context.Context, userID string) (models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile replaces the caller's mutable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID, bio, avatar string, notificationsEnabled bool) (models.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, bio, avatar, notificationsEnabled); err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// Search performs incremental cypherTag prefix search.
func (s *UserService) Search(ctx context.Context, prefix string, limit int) ([]models.User, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, fmt.Errorf("search prefix is required: %w", domain.ErrBadRequest)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return s.users.Search(ctx, prefix, limit)
}

// Notifications returns the user's notification feed, newest first.
func (s *UserService) Notifications(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.notifications.ListForUser(ctx, userID)
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *UserService) MarkNotificationRead(ctx context.Context, userID string, notificationID int64) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}

// GrantFreeCreations sets a user's free channel and group counters.
// Employee operation.
func (s *UserService) GrantFreeCreations(ctx context.Context, userID string, freeChannels, freeGroups int) error {
	if freeChannels < 0 || freeGroups < 0 {
		return fmt.Errorf("grant counters must not be negative: %w", domain.ErrBadRequest)
	}
	return s.users.SetGrants(ctx, userID, freeChannels, freeGroups)
}

// PromoteEmployee raises a user's platform role to employee.
// Employee operation; promoting an existing employee is a no-op.
func (s *UserService) PromoteEmployee(ctx context.Context, userID string) (models.User, error) {
	if err := s.users.SetRole(ctx, userID, models.RoleEmployee); err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

// DeleteAccount removes a user record. Employee operation.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	return s.users.Delete(ctx, userID)
}
