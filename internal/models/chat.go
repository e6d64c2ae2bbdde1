package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatMessage struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceRequestID string             `bson:"service_request_id" json:"service_request_id"`
	SenderID         string             `bson:"sender_id" json:"sender_id"`
	SenderName       string             `bson:"sender_name" json:"sender_name"`
	SenderRole       UserRole           `bson:"sender_role" json:"sender_role"`
	Content          string             `bson:"content" json:"content"`
	Timestamp        time.Time          `bson:"timestamp" json:"timestamp"`
	IsRead           bool               `bson:"is_read" json:"is_read"`
}

func (m *ChatMessage) Validate() error {
	if m.ServiceRequestID == "" || m.SenderID == "" || m.Content == "" {
		return errors.New("missing required chat message fields")
	}
	return nil
}
