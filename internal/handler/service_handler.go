package handler

import (
	"errors"
	"net/http"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceRequestHandler struct {
	service *services.ServiceRequestService
}

func NewServiceRequestHandler(service *services.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{service: service}
}

func (h *ServiceRequestHandler) CreateRequest(c *gin.Context) {
	var request models.ServiceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	request.ClientID = c.GetString("user_id")

	if err := h.service.Create(c.Request.Context(), &request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, request)
}

func (h *ServiceRequestHandler) GetMyRequests(c *gin.Context) {
	requests, err := h.service.ListByClient(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ServiceRequestHandler) GetAvailableRequests(c *gin.Context) {
	requests, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ServiceRequestHandler) GetAssignedRequests(c *gin.Context) {
	requests, err := h.service.ListByEmployee(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ServiceRequestHandler) GetAllRequests(c *gin.Context) {
	requests, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, requests)
}

func (h *ServiceRequestHandler) GetRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *ServiceRequestHandler) AcceptRequest(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	request, err := h.service.Accept(c.Request.Context(), id, c.GetString("user_id"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, models.ErrAlreadyAccepted):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, request)
}

// UpdateStatus accepts an optional explicit progress. When omitted the
// value is derived from the status.
func (h *ServiceRequestHandler) UpdateStatus(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var body struct {
		Status   string `json:"status" binding:"required"`
		Progress *int   `json:"progress"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	status := models.ServiceStatus(body.Status)
	var request *models.ServiceRequest
	if body.Progress != nil {
		request, err = h.service.UpdateStatus(c.Request.Context(), id, status, *body.Progress)
	} else {
		request, err = h.service.UpdateStatusAuto(c.Request.Context(), id, status)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, request)
}

func (h *ServiceRequestHandler) AddNote(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return
	}

	var body struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	note := models.ServiceNote{
		AuthorID:   c.GetString("user_id"),
		AuthorName: c.GetString("name"),
		AuthorRole: models.UserRole(c.GetString("role")),
		Content:    body.Content,
	}

	request, err := h.service.AddNote(c.Request.Context(), id, note)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, request)
}
