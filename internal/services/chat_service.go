package services

import (
	"context"
	"fmt"
	"log"

	"carservice-app/internal/models"
	"carservice-app/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChatRepository interface {
	Insert(ctx context.Context, msg *models.ChatMessage) error
	GetByServiceRequest(ctx context.Context, serviceRequestID string) ([]models.ChatMessage, error)
	MarkRead(ctx context.Context, serviceRequestID, userID string) error
	CountUnread(ctx context.Context, serviceRequestID, userID string) (int64, error)
}

type ChatService struct {
	repo        ChatRepository
	requestRepo ServiceRequestRepository
	rdb         *redis.Client
	notifier    *PushNotifier
}

func NewChatService(repo ChatRepository, requestRepo ServiceRequestRepository, rdb *redis.Client, notifier *PushNotifier) *ChatService {
	return &ChatService{repo: repo, requestRepo: requestRepo, rdb: rdb, notifier: notifier}
}

// Send writes the message verbatim. No trimming, no size limits.
func (s *ChatService) Send(ctx context.Context, msg *models.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	requestID, err := primitive.ObjectIDFromHex(msg.ServiceRequestID)
	if err != nil {
		return models.ErrInvalidID
	}
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}

	if err := s.repo.Insert(ctx, msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	s.publishEvent(ctx, msg.ServiceRequestID)
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(ctx, request, msg)
	}
	return nil
}

func (s *ChatService) Messages(ctx context.Context, serviceRequestID string) ([]models.ChatMessage, error) {
	return s.repo.GetByServiceRequest(ctx, serviceRequestID)
}

// MarkRead flips every unread message in the thread not authored by
// userID. Idempotent; the user's own messages are never touched.
func (s *ChatService) MarkRead(ctx context.Context, serviceRequestID, userID string) error {
	if err := s.repo.MarkRead(ctx, serviceRequestID, userID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	s.publishEvent(ctx, serviceRequestID)
	return nil
}

func (s *ChatService) UnreadCount(ctx context.Context, serviceRequestID, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, serviceRequestID, userID)
}

// WatchMessages redelivers the full thread, ascending by timestamp, on
// every chat event for the request.
func (s *ChatService) WatchMessages(ctx context.Context, serviceRequestID string) <-chan []models.ChatMessage {
	out := make(chan []models.ChatMessage, 1)
	pubsub := s.rdb.Subscribe(ctx, utils.ChatEventsChannel(serviceRequestID))

	go func() {
		defer pubsub.Close()
		defer close(out)

		send := func() bool {
			messages, err := s.repo.GetByServiceRequest(ctx, serviceRequestID)
			if err != nil {
				log.Printf("Chat watch query failed: %v", err)
				return false
			}
			select {
			case out <- messages:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

// WatchUnreadCount delivers the number of unread messages addressed to
// userID in the thread, initially and on every chat event.
func (s *ChatService) WatchUnreadCount(ctx context.Context, serviceRequestID, userID string) <-chan int {
	out := make(chan int, 1)
	pubsub := s.rdb.Subscribe(ctx, utils.ChatEventsChannel(serviceRequestID))

	go func() {
		defer pubsub.Close()
		defer close(out)

		send := func() bool {
			count, err := s.repo.CountUnread(ctx, serviceRequestID, userID)
			if err != nil {
				log.Printf("Unread count watch query failed: %v", err)
				return false
			}
			select {
			case out <- int(count):
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send() {
			return
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

func (s *ChatService) publishEvent(ctx context.Context, serviceRequestID string) {
	if s.rdb == nil {
		return
	}
	utils.PublishChatEvent(ctx, s.rdb, utils.ChatEvent{ServiceRequestID: serviceRequestID})
}
