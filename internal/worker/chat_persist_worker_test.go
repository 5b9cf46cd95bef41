package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seochat/internal/model"
	"seochat/internal/repository/memstore"
)

func TestPersistStoresTranscriptOnce(t *testing.T) {
	store := memstore.New()
	w := NewChatPersistWorker(nil, store.Chats(), "q", zap.NewNop())

	chat := model.Chat{
		ID:        "c-1",
		ClientID:  "client-1",
		Messages:  []model.ChatMessage{{Role: "user", Content: "hi"}},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(chat)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, w.Persist(ctx, body))
	require.NoError(t, w.Persist(ctx, body))

	id := "client-1"
	got, err := store.Chats().List(ctx, &id, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Messages[0].Content)
}

func TestPersistRejectsBadPayload(t *testing.T) {
	w := NewChatPersistWorker(nil, memstore.New().Chats(), "q", zap.NewNop())

	assert.Error(t, w.Persist(context.Background(), []byte("{")))
	assert.Error(t, w.Persist(context.Background(), []byte(`{"id":"x"}`)))
}
