package repository

import (
	"context"
	"errors"
	"time"

	"carservice-app/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ServiceRequestRepository struct {
	collection *mongo.Collection
}

func NewServiceRequestRepository(db *mongo.Database) *ServiceRequestRepository {
	return &ServiceRequestRepository{collection: db.Collection("service_requests")}
}

func (r *ServiceRequestRepository) Create(ctx context.Context, request *models.ServiceRequest) error {
	request.ID = primitive.NewObjectID()
	request.Status = models.StatusPending
	request.Progress = models.ProgressForStatus(models.StatusPending)
	request.EmployeeID = nil
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	if request.Notes == nil {
		request.Notes = []models.ServiceNote{}
	}
	_, err := r.collection.InsertOne(ctx, request)
	return err
}

func (r *ServiceRequestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *ServiceRequestRepository) GetByClientID(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{"client_id": clientID}, bson.D{{Key: "created_at", Value: -1}})
}

// GetAvailable returns pending requests not yet taken by any employee.
func (r *ServiceRequestRepository) GetAvailable(ctx context.Context) ([]models.ServiceRequest, error) {
	filter := bson.M{
		"status":      models.StatusPending,
		"employee_id": nil,
	}
	return r.find(ctx, filter, bson.D{{Key: "created_at", Value: -1}})
}

func (r *ServiceRequestRepository) GetByEmployeeID(ctx context.Context, employeeID string) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{"employee_id": employeeID}, bson.D{{Key: "updated_at", Value: -1}})
}

func (r *ServiceRequestRepository) GetAll(ctx context.Context) ([]models.ServiceRequest, error) {
	return r.find(ctx, bson.M{}, bson.D{{Key: "created_at", Value: -1}})
}

func (r *ServiceRequestRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.ServiceRequest, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	requests := []models.ServiceRequest{}
	err = cursor.All(ctx, &requests)
	return requests, err
}

// Accept assigns the employee with a conditional update keyed on
// employee_id being unset, so two employees cannot both win the race.
func (r *ServiceRequestRepository) Accept(ctx context.Context, id primitive.ObjectID, employeeID string) (*models.ServiceRequest, error) {
	filter := bson.M{"_id": id, "employee_id": nil}
	update := bson.M{
		"$set": bson.M{
			"employee_id": employeeID,
			"status":      models.StatusAccepted,
			"progress":    models.ProgressForStatus(models.StatusAccepted),
			"updated_at":  time.Now(),
		},
	}

	var updated models.ServiceRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// No match: either the request is gone or someone already took it.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrAlreadyAccepted
}

// UpdateStatus sets status, progress and updated_at in one write.
// completed_at is stamped by a second conditional write only when it is
// still unset, so reruns never move the completion time.
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus, progress int) (*models.ServiceRequest, error) {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"progress":   progress,
			"updated_at": time.Now(),
		},
	}

	res, err := r.collection.UpdateByID(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, models.ErrNotFound
	}

	if status == models.StatusCompleted {
		_, err = r.collection.UpdateOne(ctx,
			bson.M{"_id": id, "completed_at": nil},
			bson.M{"$set": bson.M{"completed_at": time.Now()}},
		)
		if err != nil {
			return nil, err
		}
	}

	return r.GetByID(ctx, id)
}

// AddNote appends to the embedded note sequence atomically.
func (r *ServiceRequestRepository) AddNote(ctx context.Context, id primitive.ObjectID, note models.ServiceNote) (*models.ServiceRequest, error) {
	update := bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	var updated models.ServiceRequest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}
