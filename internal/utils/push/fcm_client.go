package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/appleboy/go-fcm"
)

type FCMClient struct {
	client *fcm.Client
}

// NewFCMClient creates a Firebase Cloud Messaging client from a service
// account credentials JSON file.
func NewFCMClient(ctx context.Context, serviceAccountPath string) (*FCMClient, error) {
	client, err := fcm.NewClient(ctx, fcm.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, err
	}
	return &FCMClient{client: client}, nil
}

func (f *FCMClient) SendPushNotification(ctx context.Context, token, title, body string) error {
	_, err := f.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Token: token,
	})
	return err
}
