package repository

import (
	"context"
	"time"

	"carservice-app/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ChatRepository struct {
	collection *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{collection: db.Collection("chat_messages")}
}

func (r *ChatRepository) Insert(ctx context.Context, msg *models.ChatMessage) error {
	msg.ID = primitive.NewObjectID()
	msg.Timestamp = time.Now()
	msg.IsRead = false
	_, err := r.collection.InsertOne(ctx, msg)
	return err
}

func (r *ChatRepository) GetByServiceRequest(ctx context.Context, serviceRequestID string) ([]models.ChatMessage, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"service_request_id": serviceRequestID},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	messages := []models.ChatMessage{}
	err = cursor.All(ctx, &messages)
	return messages, err
}

// MarkRead flips is_read on every unread message in the thread that was
// not authored by userID. One UpdateMany, naturally idempotent.
func (r *ChatRepository) MarkRead(ctx context.Context, serviceRequestID, userID string) error {
	filter := bson.M{
		"service_request_id": serviceRequestID,
		"sender_id":          bson.M{"$ne": userID},
		"is_read":            false,
	}
	_, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$set": bson.M{"is_read": true},
	})
	return err
}

func (r *ChatRepository) CountUnread(ctx context.Context, serviceRequestID, userID string) (int64, error) {
	filter := bson.M{
		"service_request_id": serviceRequestID,
		"sender_id":          bson.M{"$ne": userID},
		"is_read":            false,
	}
	return r.collection.CountDocuments(ctx, filter)
}
