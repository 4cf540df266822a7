package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const opTimeout = time.Second * 10

// Store is the document store behind the conversation API. Ids are
// store-generated ObjectID hex strings. DeleteMessage exists only so a failed
// paired insert can be compensated, nothing else deletes.
type Store interface {
	CreateConversation(ctx context.Context, conv Conversation) (string, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	CreateMessage(ctx context.Context, msg Message) (string, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	DeleteMessage(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	CollectionNames(ctx context.Context) ([]string, error)
}

// Mongo implements Store on a mongo database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, uri, name string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return &Mongo{client: client, db: client.Database(name)}, nil
}

func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) createDocument(ctx context.Context, collection string, doc interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	res, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (m *Mongo) getDocuments(ctx context.Context, collection string, filter bson.M, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	cur, err := m.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)
	return cur.All(ctx, out)
}

func (m *Mongo) CreateConversation(ctx context.Context, conv Conversation) (string, error) {
	conv.ID = primitive.NilObjectID
	return m.createDocument(ctx, ConversationCollection, conv)
}

func (m *Mongo) ListConversations(ctx context.Context) ([]Conversation, error) {
	var convs []Conversation
	if err := m.getDocuments(ctx, ConversationCollection, bson.M{}, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (m *Mongo) CreateMessage(ctx context.Context, msg Message) (string, error) {
	msg.ID = primitive.NilObjectID
	return m.createDocument(ctx, MessageCollection, msg)
}

func (m *Mongo) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	filter := bson.M{"conversation_id": conversationID}
	if err := m.getDocuments(ctx, MessageCollection, filter, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (m *Mongo) DeleteMessage(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err = m.db.Collection(MessageCollection).DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) CollectionNames(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return m.db.ListCollectionNames(ctx, bson.M{})
}
