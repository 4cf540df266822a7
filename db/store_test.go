package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// Round-trip against a live mongo. Opt-in: set MONGO_TEST_URI, e.g.
// mongodb://127.0.0.1:27017.
func TestMongoRoundTrip(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, uri, "kiwi_test")
	require.NoError(t, err)
	defer store.Disconnect(ctx)

	convID, err := store.CreateConversation(ctx, Conversation{Title: "roundtrip", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	convs, err := store.ListConversations(ctx)
	require.NoError(t, err)
	var found bool
	for _, conv := range convs {
		if conv.ID.Hex() == convID {
			found = true
			require.Equal(t, "roundtrip", conv.Title)
		}
	}
	require.True(t, found)

	msgID, err := store.CreateMessage(ctx, Message{ConversationID: convID, Role: "user", Content: "ping"})
	require.NoError(t, err)
	msgs, err := store.ListMessages(ctx, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "ping", msgs[0].Content)

	require.NoError(t, store.DeleteMessage(ctx, msgID))
	msgs, err = store.ListMessages(ctx, convID)
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.NoError(t, store.Ping(ctx))
	names, err := store.CollectionNames(ctx)
	require.NoError(t, err)
	require.Contains(t, names, ConversationCollection)
}
