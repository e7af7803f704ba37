package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_RoundTripIsolatesCopies(t *testing.T) {
	storage := NewMemoryStorage(time.Hour, time.Minute)
	ctx := context.Background()

	session := &Session{State: StateChoosingArticle, Data: Data{FoundArticleIDs: []string{"a1"}}}
	require.NoError(t, storage.SetSession(ctx, 1, session))

	session.Data.FoundArticleIDs[0] = "mutated"

	stored, err := storage.GetSession(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, stored.Data.FoundArticleIDs)
}

func TestMemoryStorage_DeleteAndList(t *testing.T) {
	storage := NewMemoryStorage(0, 0)
	ctx := context.Background()

	require.NoError(t, storage.SetSession(ctx, 1, &Session{State: StateInit}))
	require.NoError(t, storage.SetSession(ctx, 2, &Session{State: StateChoosingReply}))
	require.NoError(t, storage.DeleteSession(ctx, 1))

	_, err := storage.GetSession(ctx, 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	all, err := storage.GetAllSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, StateChoosingReply, all[2].State)
}
