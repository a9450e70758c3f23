package service

import (
	"testing"

	"github.com/reshetovitsme/livewatch/internal/modules/user/repository"
	errs "github.com/reshetovitsme/livewatch/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, allowed ...int64) *Service {
	t.Helper()
	repo, err := repository.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	return New(repo, allowed)
}

func TestSubscribeAndRecipients(t *testing.T) {
	s := newTestService(t)

	first, err := s.Subscribe(1, 100, "alice")
	require.NoError(t, err)
	_, err = s.Subscribe(2, 200, "bob")
	require.NoError(t, err)

	again, err := s.Subscribe(1, 101, "alice")
	require.NoError(t, err)
	assert.True(t, first.AddedAt.Equal(again.AddedAt))

	recipients, err := s.Recipients()
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 200}, recipients)

	require.NoError(t, s.SetMuted(2, true))
	recipients, err = s.Recipients()
	require.NoError(t, err)
	assert.Equal(t, []int64{101}, recipients)

	require.NoError(t, s.Unsubscribe(1))
	_, err = s.GetUser(1)
	require.ErrorIs(t, err, errs.ErrUserNotFound)
}

func TestSubscribeRespectsAllowList(t *testing.T) {
	s := newTestService(t, 7)

	_, err := s.Subscribe(8, 800, "mallory")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = s.Subscribe(7, 700, "trent")
	require.NoError(t, err)
	assert.True(t, s.IsAuthorized(7))
	assert.False(t, s.IsAuthorized(8))
}
