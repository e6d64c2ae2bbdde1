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

	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error
	SetProfileImage(ctx context.Context, userID primitive.ObjectID, url string) error
}

type EmailService interface {
	SendWelcomeEmail(email, name string) error
}

type AuthService struct {
	userRepo UserRepository
	jwtUtil  *utils.JWTUtil
	email    EmailService
	google   *GoogleAuthService
	cache    *utils.RedisClient
	rdb      *redis.Client
}

func NewAuthService(userRepo UserRepository, jwtUtil *utils.JWTUtil, email EmailService, google *GoogleAuthService, cache *utils.RedisClient, rdb *redis.Client) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
		email:    email,
		google:   google,
		cache:    cache,
		rdb:      rdb,
	}
}

// SignIn authenticates by email/password and resolves the user profile.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, "", models.ErrUserNotFound
		}
		return nil, "", fmt.Errorf("sign in failed: %w", err)
	}

	if err := user.ComparePassword(password); err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), string(user.Role), user.Name)
	if err != nil {
		return nil, "", fmt.Errorf("sign in failed: %w", err)
	}

	s.publishAuthEvent(ctx, user.ID.Hex(), false)
	return user, token, nil
}

func (s *AuthService) Register(ctx context.Context, email, password, name, phone string, role models.UserRole) (*models.User, string, error) {
	if existing, _ := s.userRepo.FindUserByEmail(ctx, email); existing != nil {
		return nil, "", models.ErrEmailAlreadyInUse
	}

	user := &models.User{
		Email:    email,
		Password: password,
		Name:     name,
		Phone:    phone,
		Role:     role,
	}
	if err := utils.ValidateStruct(user); err != nil {
		return nil, "", err
	}
	if err := user.HashPassword(); err != nil {
		return nil, "", err
	}

	created, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrEmailAlreadyInUse) {
			return nil, "", models.ErrEmailAlreadyInUse
		}
		return nil, "", fmt.Errorf("registration failed: %w", err)
	}

	if s.email != nil {
		if err := s.email.SendWelcomeEmail(created.Email, created.Name); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", created.Email, err)
		}
	}

	token, err := s.jwtUtil.GenerateToken(created.ID.Hex(), string(created.Role), created.Name)
	if err != nil {
		return nil, "", fmt.Errorf("registration failed: %w", err)
	}

	s.publishAuthEvent(ctx, created.ID.Hex(), false)
	return created, token, nil
}

// GoogleLogin verifies a Google id token and provisions a client account
// on first login.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.User, string, error) {
	payload, err := s.google.VerifyGoogleToken(ctx, idToken)
	if err != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)

	user, err := s.userRepo.FindUserByEmail(ctx, email)
	if err != nil {
		user = &models.User{
			Email:    email,
			Password: utils.GenerateCode(16),
			Name:     name,
			Role:     models.RoleClient,
		}
		if err := user.HashPassword(); err != nil {
			return nil, "", err
		}
		user, err = s.userRepo.CreateUser(ctx, user)
		if err != nil {
			return nil, "", fmt.Errorf("google login failed: %w", err)
		}
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), string(user.Role), user.Name)
	if err != nil {
		return nil, "", fmt.Errorf("google login failed: %w", err)
	}

	s.publishAuthEvent(ctx, user.ID.Hex(), false)
	return user, token, nil
}

// SignOut blacklists the token's jti for its remaining lifetime and
// publishes a session-loss event so current-user streams emit nil.
func (s *AuthService) SignOut(ctx context.Context, tokenString string) error {
	token, err := s.jwtUtil.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid token claims")
	}

	jti, ok := claims["jti"].(string)
	if !ok {
		return errors.New("missing jti in token")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return errors.New("invalid token expiration")
	}

	userID, _ := claims["user_id"].(string)

	ttl := time.Until(time.Unix(int64(exp), 0))
	if err := s.cache.Set(ctx, utils.BlacklistKey(jti), true, ttl); err != nil {
		return err
	}

	s.publishAuthEvent(ctx, userID, true)
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	cacheKey := fmt.Sprintf("user_profile:%s", userID.Hex())

	if s.cache != nil {
		var cachedUser models.User
		if err := s.cache.Get(ctx, cacheKey, &cachedUser); err == nil {
			return &cachedUser, nil
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, user, 5*time.Minute); err != nil {
			log.Printf("Failed to cache user profile: %v", err)
		}
	}
	return user, nil
}

// UpdateProfile overwrites the user document in place. Identity fields
// must not change, so id, email, role and the password hash are pinned
// to their stored values before the replace.
func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	stored, err := s.userRepo.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	user.Email = stored.Email
	user.Role = stored.Role
	user.Password = stored.Password
	user.CreatedAt = stored.CreatedAt

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	s.invalidateProfileCache(ctx, user.ID.Hex())
	s.publishAuthEvent(ctx, user.ID.Hex(), false)
	return user, nil
}

func (s *AuthService) UpdateDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	if err := s.userRepo.UpdateDeviceToken(ctx, userID, token); err != nil {
		return err
	}
	s.invalidateProfileCache(ctx, userID.Hex())
	return nil
}

func (s *AuthService) SetProfileImage(ctx context.Context, userID primitive.ObjectID, url string) error {
	if err := s.userRepo.SetProfileImage(ctx, userID, url); err != nil {
		return err
	}
	s.invalidateProfileCache(ctx, userID.Hex())
	s.publishAuthEvent(ctx, userID.Hex(), false)
	return nil
}

func (s *AuthService) Validate(token string) (*jwt.Token, error) {
	return s.jwtUtil.ValidateToken(token)
}

// CurrentUserStream delivers the user document immediately and again on
// every auth event for that user. A sign-out event delivers nil. The
// stream closes when ctx is cancelled or the subscription dies.
func (s *AuthService) CurrentUserStream(ctx context.Context, userID primitive.ObjectID) <-chan *models.User {
	out := make(chan *models.User, 1)
	pubsub := s.rdb.Subscribe(ctx, utils.AuthEventsChannel(userID.Hex()))

	go func() {
		defer pubsub.Close()
		defer close(out)

		send := func(signedOut bool) bool {
			var user *models.User
			if !signedOut {
				resolved, err := s.userRepo.GetUserByID(ctx, userID)
				if err != nil && !errors.Is(err, models.ErrUserNotFound) {
					log.Printf("Current user stream query failed: %v", err)
					return false
				}
				user = resolved
			}
			select {
			case out <- user:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(false) {
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
				var ev utils.AuthEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				if !send(ev.SignedOut) {
					return
				}
			}
		}
	}()

	return out
}

func (s *AuthService) publishAuthEvent(ctx context.Context, userID string, signedOut bool) {
	if s.rdb == nil || userID == "" {
		return
	}
	utils.PublishAuthEvent(ctx, s.rdb, utils.AuthEvent{UserID: userID, SignedOut: signedOut})
}

func (s *AuthService) invalidateProfileCache(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf("user_profile:%s", userID)); err != nil {
		log.Printf("Failed to invalidate profile cache: %v", err)
	}
}
