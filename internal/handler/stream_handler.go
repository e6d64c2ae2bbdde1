package handler

import (
	"context"
	"log"
	"net/http"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes watch-stream snapshots over WebSocket. Each
// connection owns exactly one stream; closing the socket cancels the
// stream and releases its listener.
type StreamHandler struct {
	requests *services.ServiceRequestService
	chat     *services.ChatService
}

func NewStreamHandler(requests *services.ServiceRequestService, chat *services.ChatService) *StreamHandler {
	return &StreamHandler{requests: requests, chat: chat}
}

func (h *StreamHandler) WatchRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}
	h.serve(c, func(ctx context.Context, send func(interface{}) error) {
		for request := range h.requests.Watch(ctx, id) {
			if err := send(request); err != nil {
				return
			}
		}
	})
}

// WatchRequests streams a request list chosen by the scope query
// parameter: mine, available, assigned or all.
func (h *StreamHandler) WatchRequests(c *gin.Context) {
	userID := c.GetString("user_id")
	scope := c.DefaultQuery("scope", "mine")

	h.serve(c, func(ctx context.Context, send func(interface{}) error) {
		var stream <-chan []models.ServiceRequest
		switch scope {
		case "available":
			stream = h.requests.WatchAvailable(ctx)
		case "assigned":
			stream = h.requests.WatchByEmployee(ctx, userID)
		case "all":
			stream = h.requests.WatchAll(ctx)
		default:
			stream = h.requests.WatchByClient(ctx, userID)
		}
		for requests := range stream {
			if err := send(requests); err != nil {
				return
			}
		}
	})
}

func (h *StreamHandler) WatchChat(c *gin.Context) {
	requestID := c.Param("requestId")
	h.serve(c, func(ctx context.Context, send func(interface{}) error) {
		for messages := range h.chat.WatchMessages(ctx, requestID) {
			if err := send(messages); err != nil {
				return
			}
		}
	})
}

func (h *StreamHandler) WatchUnread(c *gin.Context) {
	requestID := c.Param("requestId")
	userID := c.GetString("user_id")
	h.serve(c, func(ctx context.Context, send func(interface{}) error) {
		for count := range h.chat.WatchUnreadCount(ctx, requestID, userID) {
			if err := send(gin.H{"unread": count}); err != nil {
				return
			}
		}
	})
}

func (h *StreamHandler) serve(c *gin.Context, run func(ctx context.Context, send func(interface{}) error)) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	defer conn.Close()

	// Drain reads so close frames cancel the stream promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v interface{}) error {
		return conn.WriteJSON(v)
	}
	run(ctx, send)
}
