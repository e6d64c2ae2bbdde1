package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"carservice-app/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRequestRepo mirrors the Mongo repository's conditional-update
// semantics over an in-memory map.
type fakeRequestRepo struct {
	docs map[primitive.ObjectID]*models.ServiceRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{docs: make(map[primitive.ObjectID]*models.ServiceRequest)}
}

func cloneRequest(r *models.ServiceRequest) *models.ServiceRequest {
	c := *r
	if r.EmployeeID != nil {
		id := *r.EmployeeID
		c.EmployeeID = &id
	}
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		c.CompletedAt = &at
	}
	c.Notes = append([]models.ServiceNote{}, r.Notes...)
	return &c
}

func (f *fakeRequestRepo) Create(ctx context.Context, request *models.ServiceRequest) error {
	request.ID = primitive.NewObjectID()
	request.Status = models.StatusPending
	request.Progress = models.ProgressForStatus(models.StatusPending)
	request.EmployeeID = nil
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	if request.Notes == nil {
		request.Notes = []models.ServiceNote{}
	}
	f.docs[request.ID] = cloneRequest(request)
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.ServiceRequest, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneRequest(doc), nil
}

func (f *fakeRequestRepo) GetByClientID(ctx context.Context, clientID string) ([]models.ServiceRequest, error) {
	result := []models.ServiceRequest{}
	for _, doc := range f.docs {
		if doc.ClientID == clientID {
			result = append(result, *cloneRequest(doc))
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) GetAvailable(ctx context.Context) ([]models.ServiceRequest, error) {
	result := []models.ServiceRequest{}
	for _, doc := range f.docs {
		if doc.Status == models.StatusPending && doc.EmployeeID == nil {
			result = append(result, *cloneRequest(doc))
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) GetByEmployeeID(ctx context.Context, employeeID string) ([]models.ServiceRequest, error) {
	result := []models.ServiceRequest{}
	for _, doc := range f.docs {
		if doc.EmployeeID != nil && *doc.EmployeeID == employeeID {
			result = append(result, *cloneRequest(doc))
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) GetAll(ctx context.Context) ([]models.ServiceRequest, error) {
	result := []models.ServiceRequest{}
	for _, doc := range f.docs {
		result = append(result, *cloneRequest(doc))
	}
	return result, nil
}

func (f *fakeRequestRepo) Accept(ctx context.Context, id primitive.ObjectID, employeeID string) (*models.ServiceRequest, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if doc.EmployeeID != nil {
		return nil, models.ErrAlreadyAccepted
	}
	doc.EmployeeID = &employeeID
	doc.Status = models.StatusAccepted
	doc.Progress = models.ProgressForStatus(models.StatusAccepted)
	doc.UpdatedAt = time.Now()
	return cloneRequest(doc), nil
}

func (f *fakeRequestRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ServiceStatus, progress int) (*models.ServiceRequest, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	doc.Status = status
	doc.Progress = progress
	doc.UpdatedAt = time.Now()
	if status == models.StatusCompleted && doc.CompletedAt == nil {
		now := time.Now()
		doc.CompletedAt = &now
	}
	return cloneRequest(doc), nil
}

func (f *fakeRequestRepo) AddNote(ctx context.Context, id primitive.ObjectID, note models.ServiceNote) (*models.ServiceRequest, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	doc.Notes = append(doc.Notes, note)
	doc.UpdatedAt = time.Now()
	return cloneRequest(doc), nil
}

func newRequestService(repo ServiceRequestRepository) *ServiceRequestService {
	return NewServiceRequestService(repo, nil, nil)
}

func TestCreateDefaults(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)

	request := &models.ServiceRequest{
		ClientID: "client1",
		Title:    "Oil change",
		CarModel: "Toyota Camry",
		CarYear:  2020,
	}
	if err := svc.Create(context.Background(), request); err != nil {
		t.Fatalf("Create() = %v, want nil", err)
	}

	if request.Status != models.StatusPending {
		t.Errorf("status = %s, want %s", request.Status, models.StatusPending)
	}
	if request.Progress != 0 {
		t.Errorf("progress = %d, want 0", request.Progress)
	}
	if request.EmployeeID != nil {
		t.Errorf("employee id = %v, want nil", *request.EmployeeID)
	}
}

func TestAcceptConflict(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)
	ctx := context.Background()

	request := &models.ServiceRequest{ClientID: "client1", Title: "Oil change", CarModel: "Toyota Camry", CarYear: 2020}
	if err := svc.Create(ctx, request); err != nil {
		t.Fatal(err)
	}

	accepted, err := svc.Accept(ctx, request.ID, "emp1")
	if err != nil {
		t.Fatalf("first Accept() = %v, want nil", err)
	}
	if accepted.Status != models.StatusAccepted || accepted.Progress != 20 {
		t.Errorf("after accept: status=%s progress=%d, want accepted/20", accepted.Status, accepted.Progress)
	}
	if accepted.EmployeeID == nil || *accepted.EmployeeID != "emp1" {
		t.Errorf("employee id = %v, want emp1", accepted.EmployeeID)
	}

	if _, err := svc.Accept(ctx, request.ID, "emp2"); !errors.Is(err, models.ErrAlreadyAccepted) {
		t.Fatalf("second Accept() = %v, want ErrAlreadyAccepted", err)
	}

	stored, err := svc.Get(ctx, request.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.EmployeeID == nil || *stored.EmployeeID != "emp1" {
		t.Errorf("stored employee id = %v, want emp1 unchanged", stored.EmployeeID)
	}
}

func TestAcceptMissingRequest(t *testing.T) {
	svc := newRequestService(newFakeRequestRepo())
	if _, err := svc.Accept(context.Background(), primitive.NewObjectID(), "emp1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Accept() on missing request = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatusAutoDerivesProgress(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)
	ctx := context.Background()

	request := &models.ServiceRequest{ClientID: "client1", Title: "Brakes", CarModel: "Honda Civic", CarYear: 2018}
	if err := svc.Create(ctx, request); err != nil {
		t.Fatal(err)
	}

	transitions := []struct {
		status   models.ServiceStatus
		progress int
	}{
		{models.StatusAccepted, 20},
		{models.StatusInProgress, 50},
		{models.StatusPaused, 50},
		{models.StatusCompleted, 100},
	}

	for _, tr := range transitions {
		updated, err := svc.UpdateStatusAuto(ctx, request.ID, tr.status)
		if err != nil {
			t.Fatalf("UpdateStatusAuto(%s) = %v", tr.status, err)
		}
		if updated.Progress != tr.progress {
			t.Errorf("progress after %s = %d, want %d", tr.status, updated.Progress, tr.progress)
		}
	}
}

func TestUpdateStatusExplicitProgressWins(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)
	ctx := context.Background()

	request := &models.ServiceRequest{ClientID: "client1", Title: "Brakes", CarModel: "Honda Civic", CarYear: 2018}
	if err := svc.Create(ctx, request); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateStatus(ctx, request.ID, models.StatusInProgress, 75)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Progress != 75 {
		t.Errorf("progress = %d, want caller-supplied 75", updated.Progress)
	}

	if _, err := svc.UpdateStatus(ctx, request.ID, models.StatusInProgress, 150); err == nil {
		t.Error("UpdateStatus() with progress 150 = nil, want error")
	}
	if _, err := svc.UpdateStatus(ctx, request.ID, "done", 10); err == nil {
		t.Error("UpdateStatus() with unknown status = nil, want error")
	}
}

func TestCompletedAtStampedOnce(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)
	ctx := context.Background()

	request := &models.ServiceRequest{ClientID: "client1", Title: "Tires", CarModel: "Mazda 3", CarYear: 2021}
	if err := svc.Create(ctx, request); err != nil {
		t.Fatal(err)
	}

	first, err := svc.UpdateStatusAuto(ctx, request.ID, models.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if first.CompletedAt == nil {
		t.Fatal("completed_at not stamped on completion")
	}
	stamp := *first.CompletedAt

	second, err := svc.UpdateStatusAuto(ctx, request.ID, models.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if second.CompletedAt == nil || !second.CompletedAt.Equal(stamp) {
		t.Errorf("completed_at moved on rerun: %v, want %v", second.CompletedAt, stamp)
	}
}

func TestAddNoteAssignsID(t *testing.T) {
	repo := newFakeRequestRepo()
	svc := newRequestService(repo)
	ctx := context.Background()

	request := &models.ServiceRequest{ClientID: "client1", Title: "Tires", CarModel: "Mazda 3", CarYear: 2021}
	if err := svc.Create(ctx, request); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.AddNote(ctx, request.ID, models.ServiceNote{
		AuthorID:   "emp1",
		AuthorName: "Alex",
		AuthorRole: models.RoleEmployee,
		Content:    "Front left tire replaced",
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(updated.Notes) != 1 {
		t.Fatalf("notes length = %d, want 1", len(updated.Notes))
	}
	if updated.Notes[0].ID == "" {
		t.Error("note id not assigned")
	}
	if updated.Notes[0].CreatedAt.IsZero() {
		t.Error("note created_at not set")
	}

	if _, err := svc.AddNote(ctx, request.ID, models.ServiceNote{AuthorID: "emp1"}); err == nil {
		t.Error("AddNote() with empty content = nil, want error")
	}
}
