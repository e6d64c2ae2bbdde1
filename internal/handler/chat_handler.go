package handler

import (
	"errors"
	"net/http"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service *services.ChatService
}

func NewChatHandler(service *services.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	msg := models.ChatMessage{
		ServiceRequestID: c.Param("requestId"),
		SenderID:         c.GetString("user_id"),
		SenderName:       c.GetString("name"),
		SenderRole:       models.UserRole(c.GetString("role")),
		Content:          body.Content,
	}

	if err := h.service.Send(c.Request.Context(), &msg); err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrInvalidID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "service request not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.service.Messages(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not fetch messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	if err := h.service.MarkRead(c.Request.Context(), c.Param("requestId"), c.GetString("user_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not mark messages as read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read"})
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), c.Param("requestId"), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not count unread messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
