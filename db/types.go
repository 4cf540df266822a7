package db

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	ConversationCollection = "conversation"
	MessageCollection      = "message"
)

type Conversation struct {
	ID    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title string             `json:"title" bson:"title"`
	Model string             `json:"model" bson:"model"`
}

type Message struct {
	ID primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	// ConversationID is the hex form of the parent conversation id. It is
	// never checked against the conversation collection.
	ConversationID string `json:"conversationId" bson:"conversation_id"`
	Role           string `json:"role" bson:"role"`
	Content        string `json:"content" bson:"content"`
}
