package utils

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// Change events are fanned out over Redis pub/sub. Watch streams
// re-query Mongo on every matching event and redeliver a full snapshot,
// so the payloads only carry enough to filter, never document data.

const RequestEventsChannel = "events:service_requests"

func ChatEventsChannel(serviceRequestID string) string {
	return "events:chat:" + serviceRequestID
}

func AuthEventsChannel(userID string) string {
	return "events:auth:" + userID
}

type RequestEvent struct {
	RequestID  string `json:"request_id"`
	ClientID   string `json:"client_id"`
	EmployeeID string `json:"employee_id,omitempty"`
}

type ChatEvent struct {
	ServiceRequestID string `json:"service_request_id"`
}

type AuthEvent struct {
	UserID    string `json:"user_id"`
	SignedOut bool   `json:"signed_out"`
}

func PublishRequestEvent(ctx context.Context, rdb *redis.Client, ev RequestEvent) {
	publish(ctx, rdb, RequestEventsChannel, ev)
}

func PublishChatEvent(ctx context.Context, rdb *redis.Client, ev ChatEvent) {
	publish(ctx, rdb, ChatEventsChannel(ev.ServiceRequestID), ev)
}

func PublishAuthEvent(ctx context.Context, rdb *redis.Client, ev AuthEvent) {
	publish(ctx, rdb, AuthEventsChannel(ev.UserID), ev)
}

func publish(ctx context.Context, rdb *redis.Client, channel string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[EVENTS] Failed to marshal event: %v", err)
		return
	}
	if err := rdb.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[EVENTS] Failed to publish to %s: %v", channel, err)
	}
}
