package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"carservice-app/internal/models"
	"carservice-app/internal/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ServiceRequestRepository interface {
	Create(ctx context.Context, request *models.ServiceRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error)
	GetByClientID(ctx context.Context, clientID string) ([]models.ServiceRequest, error)
	GetAvailable(ctx context.Context) ([]models.ServiceRequest, error)
	GetByEmployeeID(ctx context.Context, employeeID string) ([]models.ServiceRequest, error)
	GetAll(ctx context.Context) ([]models.ServiceRequest, error)
	Accept(ctx context.Context, id primitive.ObjectID, employeeID string) (*models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus, progress int) (*models.ServiceRequest, error)
	AddNote(ctx context.Context, id primitive.ObjectID, note models.ServiceNote) (*models.ServiceRequest, error)
}

type ServiceRequestService struct {
	repo     ServiceRequestRepository
	rdb      *redis.Client
	notifier *PushNotifier
}

func NewServiceRequestService(repo ServiceRequestRepository, rdb *redis.Client, notifier *PushNotifier) *ServiceRequestService {
	return &ServiceRequestService{repo: repo, rdb: rdb, notifier: notifier}
}

func (s *ServiceRequestService) Create(ctx context.Context, request *models.ServiceRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	s.publishEvent(ctx, request)
	return nil
}

func (s *ServiceRequestService) Get(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ServiceRequestService) ListByClient(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	return s.repo.GetByClientID(ctx, clientID)
}

func (s *ServiceRequestService) ListAvailable(ctx context.Context) ([]models.ServiceRequest, error) {
	return s.repo.GetAvailable(ctx)
}

func (s *ServiceRequestService) ListByEmployee(ctx context.Context, employeeID string) ([]models.ServiceRequest, error) {
	return s.repo.GetByEmployeeID(ctx, employeeID)
}

func (s *ServiceRequestService) ListAll(ctx context.Context) ([]models.ServiceRequest, error) {
	return s.repo.GetAll(ctx)
}

// Accept assigns the request to the employee. Fails with
// models.ErrAlreadyAccepted when another employee got there first; the
// stored document is left untouched in that case.
func (s *ServiceRequestService) Accept(ctx context.Context, id primitive.ObjectID, employeeID string) (*models.ServiceRequest, error) {
	updated, err := s.repo.Accept(ctx, id, employeeID)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, updated)
	if s.notifier != nil {
		s.notifier.NotifyAccepted(ctx, updated)
	}
	return updated, nil
}

// UpdateStatus transitions the status with an explicit progress value
// supplied by the caller. The layer does not validate the transition
// graph; illegal transitions pass through unchecked.
func (s *ServiceRequestService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus, progress int) (*models.ServiceRequest, error) {
	if !models.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status: %s", status)
	}
	if progress < 0 || progress > 100 {
		return nil, errors.New("progress must be between 0 and 100")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, progress)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, updated)
	if s.notifier != nil {
		s.notifier.NotifyStatusChanged(ctx, updated)
	}
	return updated, nil
}

// UpdateStatusAuto derives progress from the status. This path and the
// explicit-progress one above can disagree when both are exercised;
// stored progress is whatever the last writer set.
func (s *ServiceRequestService) UpdateStatusAuto(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus) (*models.ServiceRequest, error) {
	return s.UpdateStatus(ctx, id, status, models.ProgressForStatus(status))
}

func (s *ServiceRequestService) AddNote(ctx context.Context, id primitive.ObjectID, note models.ServiceNote) (*models.ServiceRequest, error) {
	if note.Content == "" {
		return nil, errors.New("note content is required")
	}
	note.ID = uuid.NewString()
	note.CreatedAt = time.Now()

	updated, err := s.repo.AddNote(ctx, id, note)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, updated)
	return updated, nil
}

// Watch delivers the request document immediately and again on every
// change event for it. Closes on ctx cancellation or stream failure.
func (s *ServiceRequestService) Watch(ctx context.Context, id primitive.ObjectID) <-chan *models.ServiceRequest {
	out := make(chan *models.ServiceRequest, 1)
	pubsub := s.rdb.Subscribe(ctx, utils.RequestEventsChannel)

	go func() {
		defer pubsub.Close()
		defer close(out)

		send := func() bool {
			request, err := s.repo.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					request = nil
				} else {
					log.Printf("Request watch query failed: %v", err)
					return false
				}
			}
			select {
			case out <- request:
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
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev utils.RequestEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if ev.RequestID != id.Hex() {
					continue
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

func (s *ServiceRequestService) WatchByClient(ctx context.Context, clientID string) <-chan []models.ServiceRequest {
	return s.watchList(ctx,
		func(ev utils.RequestEvent) bool { return ev.ClientID == clientID },
		func() ([]models.ServiceRequest, error) { return s.repo.GetByClientID(ctx, clientID) },
	)
}

// WatchAvailable re-queries on every request event: any change can move a
// request in or out of the available set.
func (s *ServiceRequestService) WatchAvailable(ctx context.Context) <-chan []models.ServiceRequest {
	return s.watchList(ctx,
		func(utils.RequestEvent) bool { return true },
		func() ([]models.ServiceRequest, error) { return s.repo.GetAvailable(ctx) },
	)
}

func (s *ServiceRequestService) WatchByEmployee(ctx context.Context, employeeID string) <-chan []models.ServiceRequest {
	return s.watchList(ctx,
		func(utils.RequestEvent) bool { return true },
		func() ([]models.ServiceRequest, error) { return s.repo.GetByEmployeeID(ctx, employeeID) },
	)
}

func (s *ServiceRequestService) WatchAll(ctx context.Context) <-chan []models.ServiceRequest {
	return s.watchList(ctx,
		func(utils.RequestEvent) bool { return true },
		func() ([]models.ServiceRequest, error) { return s.repo.GetAll(ctx) },
	)
}

func (s *ServiceRequestService) watchList(ctx context.Context, match func(utils.RequestEvent) bool, query func() ([]models.ServiceRequest, error)) <-chan []models.ServiceRequest {
	out := make(chan []models.ServiceRequest, 1)
	pubsub := s.rdb.Subscribe(ctx, utils.RequestEventsChannel)

	go func() {
		defer pubsub.Close()
		defer close(out)

		send := func() bool {
			requests, err := query()
			if err != nil {
				log.Printf("Request list watch query failed: %v", err)
				return false
			}
			select {
			case out <- requests:
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
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev utils.RequestEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if !match(ev) {
					continue
				}
				if !send() {
					return
				}
			}
		}
	}()

	return out
}

func (s *ServiceRequestService) publishEvent(ctx context.Context, request *models.ServiceRequest) {
	if s.rdb == nil {
		return
	}
	ev := utils.RequestEvent{
		RequestID: request.ID.Hex(),
		ClientID:  request.ClientID,
	}
	if request.EmployeeID != nil {
		ev.EmployeeID = *request.EmployeeID
	}
	utils.PublishRequestEvent(ctx, s.rdb, ev)
}
