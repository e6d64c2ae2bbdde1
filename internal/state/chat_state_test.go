package state

import (
	"context"
	"testing"
	"time"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubChatRepo struct {
	messages []models.ChatMessage
}

func (f *stubChatRepo) Insert(ctx context.Context, msg *models.ChatMessage) error {
	msg.ID = primitive.NewObjectID()
	msg.Timestamp = time.Now()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *stubChatRepo) GetByServiceRequest(ctx context.Context, serviceRequestID string) ([]models.ChatMessage, error) {
	return f.messages, nil
}

func (f *stubChatRepo) MarkRead(ctx context.Context, serviceRequestID, userID string) error {
	for i := range f.messages {
		if f.messages[i].SenderID != userID {
			f.messages[i].IsRead = true
		}
	}
	return nil
}

func (f *stubChatRepo) CountUnread(ctx context.Context, serviceRequestID, userID string) (int64, error) {
	return 0, nil
}

func TestSendBuildsMessageFromSender(t *testing.T) {
	requestRepo := newStubRequestRepo()
	request := &models.ServiceRequest{ClientID: "client1", Title: "Tires", CarModel: "VW Polo", CarYear: 2022}
	if err := requestRepo.Create(context.Background(), request); err != nil {
		t.Fatal(err)
	}

	chatRepo := &stubChatRepo{}
	st := NewChatState(services.NewChatService(chatRepo, requestRepo, nil, nil))

	sender := &models.User{ID: primitive.NewObjectID(), Name: "Ivan", Role: models.RoleClient}
	if err := st.Send(context.Background(), request.ID.Hex(), sender, "when will it be done?"); err != nil {
		t.Fatal(err)
	}

	if len(chatRepo.messages) != 1 {
		t.Fatalf("stored messages = %d, want 1", len(chatRepo.messages))
	}
	msg := chatRepo.messages[0]
	if msg.SenderID != sender.ID.Hex() || msg.SenderName != "Ivan" || msg.SenderRole != models.RoleClient {
		t.Errorf("sender fields not carried over: %+v", msg)
	}
}

func TestSendEmptyContentIsNoop(t *testing.T) {
	chatRepo := &stubChatRepo{}
	st := NewChatState(services.NewChatService(chatRepo, newStubRequestRepo(), nil, nil))

	sender := &models.User{ID: primitive.NewObjectID(), Name: "Ivan", Role: models.RoleClient}
	if err := st.Send(context.Background(), primitive.NewObjectID().Hex(), sender, ""); err != nil {
		t.Fatal(err)
	}
	if len(chatRepo.messages) != 0 {
		t.Error("empty message was stored")
	}
}

func TestStopUnreadDropsEntry(t *testing.T) {
	st := NewChatState(services.NewChatService(&stubChatRepo{}, newStubRequestRepo(), nil, nil))

	st.mu.Lock()
	st.unread["req1"] = 3
	st.cancelUnread["req1"] = func() {}
	st.mu.Unlock()

	st.StopUnread("req1")

	snap := st.Snapshot()
	if _, ok := snap.Unread["req1"]; ok {
		t.Error("unread entry survived StopUnread")
	}
}

func TestStoppedUnreadNotResurrected(t *testing.T) {
	st := NewChatState(services.NewChatService(&stubChatRepo{}, newStubRequestRepo(), nil, nil))

	st.mu.Lock()
	st.unread["req1"] = 3
	st.unreadSeq = 1
	st.unreadGen["req1"] = 1
	st.cancelUnread["req1"] = func() {}
	st.mu.Unlock()

	st.StopUnread("req1")

	// The cancelled stream can still deliver one buffered count.
	buffered := make(chan int, 1)
	buffered <- 5
	close(buffered)
	st.consumeUnread("req1", 1, buffered)

	snap := st.Snapshot()
	if _, ok := snap.Unread["req1"]; ok {
		t.Error("buffered count resurrected a stopped unread entry")
	}
	st.mu.Lock()
	_, hasCancel := st.cancelUnread["req1"]
	st.mu.Unlock()
	if hasCancel {
		t.Error("cancel func re-registered for stopped entry")
	}
}

func TestRestartedUnreadDropsOldGeneration(t *testing.T) {
	st := NewChatState(services.NewChatService(&stubChatRepo{}, newStubRequestRepo(), nil, nil))

	// Second subscription for the same request supersedes the first.
	st.mu.Lock()
	st.unreadSeq = 2
	st.unreadGen["req1"] = 2
	st.unread["req1"] = 0
	st.mu.Unlock()

	old := make(chan int, 1)
	old <- 7
	close(old)
	st.consumeUnread("req1", 1, old)

	if got := st.Snapshot().Unread["req1"]; got != 0 {
		t.Errorf("superseded subscription wrote count %d", got)
	}

	live := make(chan int, 1)
	live <- 4
	close(live)
	st.consumeUnread("req1", 2, live)

	if got := st.Snapshot().Unread["req1"]; got != 4 {
		t.Errorf("registered subscription delivery dropped, count = %d", got)
	}
}

func TestStaleThreadSnapshotDropped(t *testing.T) {
	st := NewChatState(services.NewChatService(&stubChatRepo{}, newStubRequestRepo(), nil, nil))

	st.mu.Lock()
	st.threadID = "req1"
	st.threadGen = 2
	st.messages = []models.ChatMessage{{Content: "fresh"}}
	st.mu.Unlock()

	stale := make(chan []models.ChatMessage, 1)
	stale <- []models.ChatMessage{{Content: "stale"}}
	close(stale)
	st.consumeThread(1, stale)

	snap := st.Snapshot()
	if len(snap.Messages) != 1 || snap.Messages[0].Content != "fresh" {
		t.Errorf("stale snapshot overwrote thread messages: %+v", snap.Messages)
	}
}

func TestSnapshotCopiesUnreadMap(t *testing.T) {
	st := NewChatState(services.NewChatService(&stubChatRepo{}, newStubRequestRepo(), nil, nil))

	st.mu.Lock()
	st.unread["req1"] = 2
	st.mu.Unlock()

	snap := st.Snapshot()
	snap.Unread["req1"] = 99

	if got := st.Snapshot().Unread["req1"]; got != 2 {
		t.Errorf("internal unread mutated through snapshot copy: %d", got)
	}
}
