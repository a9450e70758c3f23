package repository

import (
	"github.com/reshetovitsme/livewatch/internal/modules/user/domain"
)

// Repository defines the interface for subscriber persistence
type Repository interface {
	SaveUser(user *domain.User) error
	GetUser(userID int64) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	DeleteUser(userID int64) error
}
