package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"
)

const favouritesFile = "favourites.json"

type favouritesDocument struct {
	ChannelIDs []string  `json:"channel_ids"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileStorage implements FavouriteRepository with a JSON file
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based favourites repository
func NewFileStorage(basePath string) (*FileStorage, error) {
	channelPath := filepath.Join(basePath, "channels")
	if err := os.MkdirAll(channelPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create channels directory").Wrap(err)
	}

	return &FileStorage{basePath: channelPath}, nil
}

func (s *FileStorage) Load(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := filepath.Join(s.basePath, favouritesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, oops.With("path", path, "context", "failed to read favourites").Wrap(err)
	}

	var doc favouritesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, oops.With("path", path, "context", "failed to unmarshal favourites").Wrap(err)
	}

	return normalize(doc.ChannelIDs), nil
}

func (s *FileStorage) Save(_ context.Context, channelIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := favouritesDocument{ChannelIDs: normalize(channelIDs), UpdatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal favourites").Wrap(err)
	}

	// Write to a temp file first so a crash never leaves a truncated set behind.
	path := filepath.Join(s.basePath, favouritesFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return oops.With("path", tmp, "context", "failed to write favourites").Wrap(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return oops.With("path", path, "context", "failed to replace favourites").Wrap(err)
	}
	return nil
}

func (s *FileStorage) Close() error {
	return nil
}

func normalize(ids []string) []string {
	out := lo.Uniq(lo.Compact(ids))
	slices.Sort(out)
	return out
}
