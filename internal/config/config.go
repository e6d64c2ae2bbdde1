package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI           string
	MongoDatabase      string
	RedisURL           string
	JWTSecret          string
	ServerPort         string
	GoogleClientID     string
	SMTPHost           string
	SMTPPort           string
	SMTPUser           string
	SMTPPass           string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	FCMCredentialsFile string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	db := os.Getenv("MONGO_DATABASE")
	if db == "" {
		db = "car_service"
	}

	return &Config{
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDatabase:      db,
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ServerPort:         os.Getenv("SERVER_PORT"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		SMTPHost:           os.Getenv("SMTP_HOST"),
		SMTPPort:           os.Getenv("SMTP_PORT"),
		SMTPUser:           os.Getenv("SMTP_USER"),
		SMTPPass:           os.Getenv("SMTP_PASS"),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:   os.Getenv("TWILIO_FROM_NUMBER"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        os.Getenv("MINIO_BUCKET"),
		FCMCredentialsFile: os.Getenv("FCM_CREDENTIALS_FILE"),
	}, nil
}
