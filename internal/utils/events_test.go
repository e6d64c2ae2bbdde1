package utils

import (
	"encoding/json"
	"testing"
)

func TestRequestEventRoundTrip(t *testing.T) {
	ev := RequestEvent{RequestID: "req1", ClientID: "client1", EmployeeID: "emp1"}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var decoded RequestEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != ev {
		t.Errorf("decoded = %+v, want %+v", decoded, ev)
	}
}

func TestRequestEventOmitsEmptyEmployee(t *testing.T) {
	data, err := json.Marshal(RequestEvent{RequestID: "req1", ClientID: "client1"})
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["employee_id"]; ok {
		t.Errorf("empty employee_id serialized: %s", data)
	}
}

func TestChatAndAuthEventRoundTrip(t *testing.T) {
	chatData, err := json.Marshal(ChatEvent{ServiceRequestID: "req1"})
	if err != nil {
		t.Fatal(err)
	}
	var chat ChatEvent
	if err := json.Unmarshal(chatData, &chat); err != nil {
		t.Fatal(err)
	}
	if chat.ServiceRequestID != "req1" {
		t.Errorf("chat event request id = %q, want req1", chat.ServiceRequestID)
	}

	authData, err := json.Marshal(AuthEvent{UserID: "user1", SignedOut: true})
	if err != nil {
		t.Fatal(err)
	}
	var auth AuthEvent
	if err := json.Unmarshal(authData, &auth); err != nil {
		t.Fatal(err)
	}
	if auth.UserID != "user1" || !auth.SignedOut {
		t.Errorf("auth event = %+v, want user1/signed out", auth)
	}
}

func TestEventChannelNames(t *testing.T) {
	if RequestEventsChannel != "events:service_requests" {
		t.Errorf("request channel = %q", RequestEventsChannel)
	}
	if got := ChatEventsChannel("req1"); got != "events:chat:req1" {
		t.Errorf("chat channel = %q", got)
	}
	if got := AuthEventsChannel("user1"); got != "events:auth:user1" {
		t.Errorf("auth channel = %q", got)
	}
}
