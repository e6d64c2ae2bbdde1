package services

import (
	"context"
	"errors"
	"testing"

	"carservice-app/internal/models"
	"carservice-app/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return nil, models.ErrEmailAlreadyInUse
		}
	}
	user.ID = primitive.NewObjectID()
	stored := *user
	f.users[user.ID] = &stored
	return user, nil
}

func (f *fakeUserRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	found := *u
	return &found, nil
}

func (f *fakeUserRepo) UpdateUser(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return models.ErrUserNotFound
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) UpdateDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	u, ok := f.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.DeviceToken = token
	return nil
}

func (f *fakeUserRepo) SetProfileImage(ctx context.Context, userID primitive.ObjectID, url string) error {
	u, ok := f.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.ProfileImageURL = &url
	return nil
}

func newAuthService(repo UserRepository) *AuthService {
	return NewAuthService(repo, utils.NewJWTUtil("test-secret"), nil, nil, nil, nil)
}

func TestRegisterAndSignIn(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	created, token, err := svc.Register(ctx, "ivan@example.com", "secret123", "Ivan", "+79001234567", models.RoleClient)
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Error("Register() returned empty token")
	}
	if created.ID.IsZero() {
		t.Error("Register() left user id unset")
	}
	if created.Password == "secret123" {
		t.Error("password stored in plain text")
	}

	user, token, err := svc.SignIn(ctx, "ivan@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Error("SignIn() returned empty token")
	}
	if user.ID != created.ID {
		t.Errorf("SignIn() user id = %s, want %s", user.ID.Hex(), created.ID.Hex())
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ivan@example.com", "secret123", "Ivan", "", models.RoleClient); err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.SignIn(ctx, "ivan@example.com", "wrong")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("SignIn() with wrong password = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())

	_, _, err := svc.SignIn(context.Background(), "nobody@example.com", "secret123")
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("SignIn() for unknown email = %v, want ErrUserNotFound", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "ivan@example.com", "secret123", "Ivan", "", models.RoleClient); err != nil {
		t.Fatal(err)
	}

	_, _, err := svc.Register(ctx, "ivan@example.com", "другой", "Ivan 2", "", models.RoleEmployee)
	if !errors.Is(err, models.ErrEmailAlreadyInUse) {
		t.Errorf("second Register() = %v, want ErrEmailAlreadyInUse", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(newFakeUserRepo())
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "not-an-email", "secret123", "Ivan", "", models.RoleClient); err == nil {
		t.Error("Register() with bad email = nil, want error")
	}
	if _, _, err := svc.Register(ctx, "ivan@example.com", "123", "Ivan", "", models.RoleClient); err == nil {
		t.Error("Register() with short password = nil, want error")
	}
}

func TestUpdateProfilePinsIdentityFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newAuthService(repo)
	ctx := context.Background()

	created, _, err := svc.Register(ctx, "ivan@example.com", "secret123", "Ivan", "", models.RoleClient)
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateProfile(ctx, &models.User{
		ID:    created.ID,
		Email: "stolen@example.com",
		Name:  "Ivan Petrov",
		Phone: "+79001234567",
		Role:  models.RoleEmployee,
	})
	if err != nil {
		t.Fatal(err)
	}

	if updated.Email != "ivan@example.com" {
		t.Errorf("email changed to %s", updated.Email)
	}
	if updated.Role != models.RoleClient {
		t.Errorf("role changed to %s", updated.Role)
	}
	if updated.Name != "Ivan Petrov" {
		t.Errorf("name = %s, want Ivan Petrov", updated.Name)
	}

	// Old password still works after the replace.
	if _, _, err := svc.SignIn(ctx, "ivan@example.com", "secret123"); err != nil {
		t.Errorf("SignIn() after profile update = %v", err)
	}
}
