package state

import (
	"context"
	"sync"

	"carservice-app/internal/models"
	"carservice-app/internal/services"
)

// ChatState holds the current thread's messages and a map of request id
// to unread count. Each unread entry is backed by its own subscription
// and cancelled independently; the map is the explicit model for the
// one-listener-per-list-item pattern.
type ChatState struct {
	svc *services.ChatService

	mu           sync.Mutex
	threadID     string
	threadGen    uint64
	messages     []models.ChatMessage
	cancelThread context.CancelFunc
	unread       map[string]int
	unreadSeq    uint64
	unreadGen    map[string]uint64
	cancelUnread map[string]context.CancelFunc

	changed signal
}

type ChatSnapshot struct {
	ThreadID string
	Messages []models.ChatMessage
	Unread   map[string]int
}

func NewChatState(svc *services.ChatService) *ChatState {
	return &ChatState{
		svc:          svc,
		unread:       make(map[string]int),
		unreadGen:    make(map[string]uint64),
		cancelUnread: make(map[string]context.CancelFunc),
	}
}

// OpenThread switches the message subscription to the given request.
// The previous thread's state is replaced, not merged.
func (s *ChatState) OpenThread(ctx context.Context, serviceRequestID string) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelThread != nil {
		s.cancelThread()
	}
	s.cancelThread = cancel
	s.threadID = serviceRequestID
	s.threadGen++
	gen := s.threadGen
	s.messages = nil
	s.mu.Unlock()
	s.changed.Notify()

	go s.consumeThread(gen, s.svc.WatchMessages(ctx, serviceRequestID))
}

// consumeThread writes thread snapshots into shared state. The generation
// check drops snapshots buffered by a superseded subscription, including
// a reopen of the same thread.
func (s *ChatState) consumeThread(gen uint64, stream <-chan []models.ChatMessage) {
	for messages := range stream {
		s.mu.Lock()
		if s.threadGen != gen {
			s.mu.Unlock()
			return
		}
		s.messages = messages
		s.mu.Unlock()
		s.changed.Notify()
	}
}

func (s *ChatState) Send(ctx context.Context, serviceRequestID string, sender *models.User, content string) error {
	if content == "" {
		return nil
	}
	msg := &models.ChatMessage{
		ServiceRequestID: serviceRequestID,
		SenderID:         sender.ID.Hex(),
		SenderName:       sender.Name,
		SenderRole:       sender.Role,
		Content:          content,
	}
	return s.svc.Send(ctx, msg)
}

func (s *ChatState) MarkRead(ctx context.Context, serviceRequestID, userID string) error {
	return s.svc.MarkRead(ctx, serviceRequestID, userID)
}

// WatchUnread adds one independently cancellable unread-count
// subscription for the request. Watching an already-watched request
// restarts its subscription.
func (s *ChatState) WatchUnread(ctx context.Context, serviceRequestID, userID string) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if prev, ok := s.cancelUnread[serviceRequestID]; ok {
		prev()
	}
	s.cancelUnread[serviceRequestID] = cancel
	s.unreadSeq++
	gen := s.unreadSeq
	s.unreadGen[serviceRequestID] = gen
	s.mu.Unlock()

	go s.consumeUnread(serviceRequestID, gen, s.svc.WatchUnreadCount(ctx, serviceRequestID, userID))
}

// consumeUnread updates one unread entry. A count buffered by the stream
// at cancellation time must not resurrect an entry StopUnread removed,
// so deliveries are dropped once the entry's generation moved on.
func (s *ChatState) consumeUnread(serviceRequestID string, gen uint64, stream <-chan int) {
	for count := range stream {
		s.mu.Lock()
		if s.unreadGen[serviceRequestID] != gen {
			s.mu.Unlock()
			return
		}
		s.unread[serviceRequestID] = count
		s.mu.Unlock()
		s.changed.Notify()
	}
}

func (s *ChatState) StopUnread(serviceRequestID string) {
	s.mu.Lock()
	if cancel, ok := s.cancelUnread[serviceRequestID]; ok {
		cancel()
		delete(s.cancelUnread, serviceRequestID)
		delete(s.unread, serviceRequestID)
		delete(s.unreadGen, serviceRequestID)
	}
	s.mu.Unlock()
	s.changed.Notify()
}

func (s *ChatState) Snapshot() ChatSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := make(map[string]int, len(s.unread))
	for k, v := range s.unread {
		unread[k] = v
	}
	return ChatSnapshot{
		ThreadID: s.threadID,
		Messages: s.messages,
		Unread:   unread,
	}
}

func (s *ChatState) Updates() <-chan struct{} {
	return s.changed.Subscribe()
}

// Close cancels the thread subscription and every unread subscription.
func (s *ChatState) Close() {
	s.mu.Lock()
	if s.cancelThread != nil {
		s.cancelThread()
		s.cancelThread = nil
	}
	s.threadGen++
	for id, cancel := range s.cancelUnread {
		cancel()
		delete(s.cancelUnread, id)
		delete(s.unreadGen, id)
	}
	s.mu.Unlock()
}
