package repository

import (
	"cmp"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/reshetovitsme/livewatch/internal/modules/user/domain"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

const subscribersFile = "subscribers.json"

// FileStorage keeps every subscriber in memory and rewrites one JSON
// document on each change.
type FileStorage struct {
	path  string
	mu    sync.RWMutex
	users map[int64]domain.User
}

// NewFileStorage creates a file-based subscriber repository and loads any
// existing subscribers.
func NewFileStorage(basePath string) (*FileStorage, error) {
	userPath := filepath.Join(basePath, "users")
	if err := os.MkdirAll(userPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create users directory").Wrap(err)
	}

	s := &FileStorage{
		path:  filepath.Join(userPath, subscribersFile),
		users: make(map[int64]domain.User),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return oops.With("path", s.path, "context", "failed to read subscribers").Wrap(err)
	}

	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return oops.With("path", s.path, "context", "failed to unmarshal subscribers").Wrap(err)
	}
	s.users = lo.SliceToMap(users, func(u domain.User) (int64, domain.User) { return u.ID, u })
	return nil
}

// flush writes the whole set. Callers hold the write lock.
func (s *FileStorage) flush() error {
	users := lo.Values(s.users)
	slices.SortFunc(users, func(a, b domain.User) int { return cmp.Compare(a.ID, b.ID) })

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal subscribers").Wrap(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write subscribers").Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return oops.With("path", s.path, "context", "failed to replace subscribers").Wrap(err)
	}
	return nil
}

func (s *FileStorage) SaveUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.users[user.ID]
	s.users[user.ID] = *user
	if err := s.flush(); err != nil {
		if existed {
			s.users[user.ID] = previous
		} else {
			delete(s.users, user.ID)
		}
		return oops.With("user_id", user.ID).Wrap(err)
	}
	return nil
}

func (s *FileStorage) GetUser(userID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, oops.With("user_id", userID).Wrap(errs.ErrUserNotFound)
	}
	return &user, nil
}

// GetAllUsers returns every subscriber ordered by id.
func (s *FileStorage) GetAllUsers() ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := lo.MapToSlice(s.users, func(_ int64, u domain.User) *domain.User { return &u })
	slices.SortFunc(users, func(a, b *domain.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (s *FileStorage) DeleteUser(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil
	}
	delete(s.users, userID)
	if err := s.flush(); err != nil {
		s.users[userID] = user
		return oops.With("user_id", userID).Wrap(err)
	}
	return nil
}
