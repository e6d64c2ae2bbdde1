package services

import (
	"context"
	"fmt"
	"log"

	"carservice-app/internal/models"
	"carservice-app/internal/utils"
	"carservice-app/internal/utils/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PushNotifier delivers best-effort notifications about request and chat
// activity. Failures are logged and never propagated to the caller.
type PushNotifier struct {
	userRepo UserRepository
	fcm      *push.FCMClient
	sms      *utils.SMSClient
}

func NewPushNotifier(userRepo UserRepository, fcm *push.FCMClient, sms *utils.SMSClient) *PushNotifier {
	return &PushNotifier{userRepo: userRepo, fcm: fcm, sms: sms}
}

func (n *PushNotifier) NotifyAccepted(ctx context.Context, request *models.ServiceRequest) {
	title := "Request accepted"
	body := fmt.Sprintf("An employee has accepted \"%s\".", request.Title)
	n.pushTo(ctx, request.ClientID, title, body)
}

func (n *PushNotifier) NotifyStatusChanged(ctx context.Context, request *models.ServiceRequest) {
	title := "Service status updated"
	body := fmt.Sprintf("\"%s\" is now %s.", request.Title, request.Status)
	n.pushTo(ctx, request.ClientID, title, body)

	if request.Status == models.StatusCompleted {
		n.smsTo(ctx, request.ClientID, fmt.Sprintf(
			"Your car service \"%s\" is completed. Thank you!", request.Title,
		))
	}
}

// NotifyNewMessage pushes to the counterparty of the sender.
func (n *PushNotifier) NotifyNewMessage(ctx context.Context, request *models.ServiceRequest, msg *models.ChatMessage) {
	var target string
	if msg.SenderID == request.ClientID {
		if request.EmployeeID == nil {
			return
		}
		target = *request.EmployeeID
	} else {
		target = request.ClientID
	}

	title := fmt.Sprintf("New message from %s", msg.SenderName)
	n.pushTo(ctx, target, title, msg.Content)
}

func (n *PushNotifier) pushTo(ctx context.Context, userID, title, body string) {
	if n == nil || n.fcm == nil {
		return
	}
	user, err := n.lookup(ctx, userID)
	if err != nil || user.DeviceToken == "" {
		return
	}
	if err := n.fcm.SendPushNotification(ctx, user.DeviceToken, title, body); err != nil {
		log.Printf("Failed to send push to %s: %v", userID, err)
	}
}

func (n *PushNotifier) smsTo(ctx context.Context, userID, body string) {
	if n == nil || n.sms == nil {
		return
	}
	user, err := n.lookup(ctx, userID)
	if err != nil || user.Phone == "" {
		return
	}
	if err := n.sms.SendSMS(user.Phone, body); err != nil {
		log.Printf("Failed to send sms to %s: %v", userID, err)
	}
}

func (n *PushNotifier) lookup(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, err
	}
	return n.userRepo.GetUserByID(ctx, oid)
}
