package state

import (
	"context"
	"sync"

	"carservice-app/internal/models"
	"carservice-app/internal/services"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceState holds one request list, one current request and the
// phases of the write actions. Switching list subscriptions replaces
// rather than merges.
type ServiceState struct {
	svc *services.ServiceRequestService

	mu            sync.Mutex
	phase         Phase
	errMsg        string
	requests      []models.ServiceRequest
	current       *models.ServiceRequest
	cancelList    context.CancelFunc
	cancelCurrent context.CancelFunc
	listGen       uint64
	currentGen    uint64

	changed signal
}

type ServiceSnapshot struct {
	Phase    Phase
	Err      string
	Requests []models.ServiceRequest
	Current  *models.ServiceRequest
}

func NewServiceState(svc *services.ServiceRequestService) *ServiceState {
	return &ServiceState{svc: svc, phase: PhaseIdle}
}

func (s *ServiceState) Create(ctx context.Context, request *models.ServiceRequest) {
	s.setLoading()
	err := s.svc.Create(ctx, request)
	s.finish(err)
}

func (s *ServiceState) Accept(ctx context.Context, id primitive.ObjectID, employeeID string) {
	s.setLoading()
	_, err := s.svc.Accept(ctx, id, employeeID)
	s.finish(err)
}

func (s *ServiceState) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus, progress int) {
	s.setLoading()
	_, err := s.svc.UpdateStatus(ctx, id, status, progress)
	s.finish(err)
}

func (s *ServiceState) UpdateStatusAuto(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus) {
	s.setLoading()
	_, err := s.svc.UpdateStatusAuto(ctx, id, status)
	s.finish(err)
}

func (s *ServiceState) AddNote(ctx context.Context, id primitive.ObjectID, note models.ServiceNote) {
	s.setLoading()
	_, err := s.svc.AddNote(ctx, id, note)
	s.finish(err)
}

func (s *ServiceState) WatchClientRequests(ctx context.Context, clientID string) {
	s.watchList(ctx, func(ctx context.Context) <-chan []models.ServiceRequest {
		return s.svc.WatchByClient(ctx, clientID)
	})
}

func (s *ServiceState) WatchAvailableRequests(ctx context.Context) {
	s.watchList(ctx, s.svc.WatchAvailable)
}

func (s *ServiceState) WatchEmployeeRequests(ctx context.Context, employeeID string) {
	s.watchList(ctx, func(ctx context.Context) <-chan []models.ServiceRequest {
		return s.svc.WatchByEmployee(ctx, employeeID)
	})
}

func (s *ServiceState) WatchAllRequests(ctx context.Context) {
	s.watchList(ctx, s.svc.WatchAll)
}

// WatchRequest tracks a single request document, replacing the previous
// current-request subscription if any.
func (s *ServiceState) WatchRequest(ctx context.Context, id primitive.ObjectID) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelCurrent != nil {
		s.cancelCurrent()
	}
	s.cancelCurrent = cancel
	s.currentGen++
	gen := s.currentGen
	s.mu.Unlock()

	go s.consumeCurrent(gen, s.svc.Watch(ctx, id))
}

func (s *ServiceState) watchList(ctx context.Context, open func(context.Context) <-chan []models.ServiceRequest) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancelList != nil {
		s.cancelList()
	}
	s.cancelList = cancel
	s.listGen++
	gen := s.listGen
	s.mu.Unlock()

	go s.consumeList(gen, open(ctx))
}

// consumeList writes list snapshots into shared state. A cancelled
// stream can still hold one buffered snapshot, so deliveries from a
// superseded subscription are dropped by the generation check.
func (s *ServiceState) consumeList(gen uint64, stream <-chan []models.ServiceRequest) {
	for requests := range stream {
		s.mu.Lock()
		if s.listGen != gen {
			s.mu.Unlock()
			return
		}
		s.requests = requests
		s.mu.Unlock()
		s.changed.Notify()
	}
}

func (s *ServiceState) consumeCurrent(gen uint64, stream <-chan *models.ServiceRequest) {
	for request := range stream {
		s.mu.Lock()
		if s.currentGen != gen {
			s.mu.Unlock()
			return
		}
		s.current = request
		s.mu.Unlock()
		s.changed.Notify()
	}
}

func (s *ServiceState) Snapshot() ServiceSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServiceSnapshot{
		Phase:    s.phase,
		Err:      s.errMsg,
		Requests: s.requests,
		Current:  s.current,
	}
}

func (s *ServiceState) Updates() <-chan struct{} {
	return s.changed.Subscribe()
}

func (s *ServiceState) Close() {
	s.mu.Lock()
	if s.cancelList != nil {
		s.cancelList()
		s.cancelList = nil
	}
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
	s.listGen++
	s.currentGen++
	s.mu.Unlock()
}

func (s *ServiceState) setLoading() {
	s.mu.Lock()
	s.phase = PhaseLoading
	s.errMsg = ""
	s.mu.Unlock()
	s.changed.Notify()
}

func (s *ServiceState) finish(err error) {
	s.mu.Lock()
	if err != nil {
		s.phase = PhaseError
		s.errMsg = err.Error()
	} else {
		s.phase = PhaseSuccess
	}
	s.mu.Unlock()
	s.changed.Notify()
}
