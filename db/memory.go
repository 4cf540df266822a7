package db

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store for tests and local runs without mongo.
// Ids are real ObjectIDs so ordering and validation behave like the mongo
// implementation.
type Memory struct {
	mu            sync.Mutex
	conversations []Conversation
	messages      []Message
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CreateConversation(ctx context.Context, conv Conversation) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv.ID = primitive.NewObjectID()
	m.conversations = append(m.conversations, conv)
	return conv.ID.Hex(), nil
}

func (m *Memory) ListConversations(ctx context.Context) ([]Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out, nil
}

func (m *Memory) CreateMessage(ctx context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	m.messages = append(m.messages, msg)
	return msg.ID.Hex(), nil
}

func (m *Memory) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Memory) DeleteMessage(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range m.messages {
		if msg.ID.Hex() == id {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) CollectionNames(ctx context.Context) ([]string, error) {
	return []string{ConversationCollection, MessageCollection}, nil
}
