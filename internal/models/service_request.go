package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceStatus string

const (
	StatusPending    ServiceStatus = "pending"
	StatusAccepted   ServiceStatus = "accepted"
	StatusInProgress ServiceStatus = "in_progress"
	StatusPaused     ServiceStatus = "paused"
	StatusCompleted  ServiceStatus = "completed"
	StatusCancelled  ServiceStatus = "cancelled"
)

// ProgressForStatus maps a status to its derived progress value.
// Callers may still pass an explicit progress through UpdateStatus,
// in which case the stored value wins over the derived one.
func ProgressForStatus(status ServiceStatus) int {
	switch status {
	case StatusAccepted:
		return 20
	case StatusInProgress, StatusPaused:
		return 50
	case StatusCompleted:
		return 100
	default: // pending, cancelled
		return 0
	}
}

func ValidStatus(status ServiceStatus) bool {
	switch status {
	case StatusPending, StatusAccepted, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type ServiceRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID    string             `bson:"client_id" json:"client_id"`
	EmployeeID  *string            `bson:"employee_id,omitempty" json:"employee_id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	CarModel    string             `bson:"car_model" json:"car_model"`
	CarYear     int                `bson:"car_year" json:"car_year"`
	Status      ServiceStatus      `bson:"status" json:"status"`
	Progress    int                `bson:"progress" json:"progress"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Notes       []ServiceNote      `bson:"notes" json:"notes"`
}

// ServiceNote is embedded in the request document and append-only.
type ServiceNote struct {
	ID         string    `bson:"id" json:"id"`
	AuthorID   string    `bson:"author_id" json:"author_id"`
	AuthorName string    `bson:"author_name" json:"author_name"`
	AuthorRole UserRole  `bson:"author_role" json:"author_role"`
	Content    string    `bson:"content" json:"content"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

func (r *ServiceRequest) Validate() error {
	if r.ClientID == "" || r.Title == "" || r.CarModel == "" || r.CarYear == 0 {
		return errors.New("missing required service request fields")
	}
	return nil
}
