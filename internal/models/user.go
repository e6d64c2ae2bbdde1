package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type UserRole string

const (
	RoleClient   UserRole = "client"
	RoleEmployee UserRole = "employee"
)

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email           string             `bson:"email" json:"email" validate:"required,email"`
	Password        string             `bson:"password" json:"-" validate:"required,min=6"`
	Name            string             `bson:"name" json:"name" validate:"required"`
	Phone           string             `bson:"phone" json:"phone" validate:"omitempty"`
	Role            UserRole           `bson:"role" json:"role" validate:"required,oneof=client employee"`
	ProfileImageURL *string            `bson:"profile_image_url,omitempty" json:"profile_image_url,omitempty"`
	DeviceToken     string             `bson:"device_token,omitempty" json:"-"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}
