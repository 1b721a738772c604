package notify

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNewEventHasIdentity(t *testing.T) {
	a := NewEvent(EventRoomCreated, "deal_F_V", "raftai", nil)
	b := NewEvent(EventRoomCreated, "deal_F_V", "raftai", nil)
	if a.Id == "" || a.Id == b.Id {
		t.Fatalf("event ids should be unique, got %q and %q", a.Id, b.Id)
	}
	if a.Time.IsZero() {
		t.Fatal("event time should be set")
	}
}

func TestEnvelopeShape(t *testing.T) {
	event := NewEvent(EventFileReviewed, "r1", "u1", map[string]any{"status": "approved"})
	body, err := json.Marshal(newEnvelope("raft_chat_server", event))
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Meta struct {
			Id   string `json:"id"`
			Type string `json:"type"`
		} `json:"meta"`
		Data struct {
			RoomId string `json:"roomId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Meta.Id != event.Id || decoded.Meta.Type != "chat.file_reviewed.v1" || decoded.Data.RoomId != "r1" {
		t.Fatalf("unexpected envelope: %s", body)
	}
	if RoutingKey(event) != "chat.file_reviewed" {
		t.Fatalf("routing key = %s", RoutingKey(event))
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier()
	if err := n.Notify(context.Background(), NewEvent(EventMemberJoined, "r1", "u1", nil)); err != nil {
		t.Fatal(err)
	}
	if err := n.Close(); err != nil {
		t.Fatal(err)
	}
}
