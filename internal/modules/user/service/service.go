package service

import (
	"errors"
	"slices"
	"time"

	"github.com/reshetovitsme/livewatch/internal/modules/user/domain"
	"github.com/reshetovitsme/livewatch/internal/modules/user/repository"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// Service manages the chats that receive notifications
type Service struct {
	repo         repository.Repository
	allowedUsers []int64
}

// New creates a new user service
func New(repo repository.Repository, allowedUsers []int64) *Service {
	return &Service{
		repo:         repo,
		allowedUsers: allowedUsers,
	}
}

// Subscribe registers a chat for notifications. Subscribing twice keeps the
// original subscription date and unmutes the chat.
func (s *Service) Subscribe(userID, chatID int64, username string) (*domain.User, error) {
	if !s.IsAuthorized(userID) {
		return nil, oops.With("user_id", userID).Wrap(errs.ErrUnauthorized)
	}

	user, err := s.repo.GetUser(userID)
	if err != nil {
		if !errors.Is(err, errs.ErrUserNotFound) {
			return nil, err
		}
		user = &domain.User{ID: userID, AddedAt: time.Now().UTC()}
	}
	user.ChatID = chatID
	user.Username = username
	user.Muted = false

	if err := s.repo.SaveUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Unsubscribe removes a chat from notifications.
func (s *Service) Unsubscribe(userID int64) error {
	return s.repo.DeleteUser(userID)
}

// SetMuted pauses or resumes notifications for a user.
func (s *Service) SetMuted(userID int64, muted bool) error {
	user, err := s.repo.GetUser(userID)
	if err != nil {
		return err
	}
	user.Muted = muted
	return s.repo.SaveUser(user)
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(userID int64) (*domain.User, error) {
	return s.repo.GetUser(userID)
}

// Recipients returns the chat ids that should receive notifications.
func (s *Service) Recipients() ([]int64, error) {
	users, err := s.repo.GetAllUsers()
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(users, func(u *domain.User, _ int) (int64, bool) {
		return u.ChatID, !u.Muted && u.ChatID != 0 && s.IsAuthorized(u.ID)
	}), nil
}

// IsAuthorized checks if a user is authorized
func (s *Service) IsAuthorized(userID int64) bool {
	if len(s.allowedUsers) == 0 {
		return true // No restrictions
	}
	return slices.Contains(s.allowedUsers, userID)
}
