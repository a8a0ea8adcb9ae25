package events_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/regform/apiserver/internal/events"
	"github.com/regform/apiserver/internal/mq"
	"github.com/regform/apiserver/types"
)

type capturingBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
}

func (c *capturingBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	c.channel = channel
	c.data = data
	c.attrs = attrs
	return "msg-1", nil
}

func (c *capturingBackend) Close() error { return nil }

func TestPublishUser(t *testing.T) {
	backend := &capturingBackend{}
	publisher := events.NewPublisher(mq.New(backend), "user-events", nil)

	user := types.User{
		ID:           7,
		Email:        "a@b.com",
		Name:         "A",
		PasswordHash: "$2a$10$should-never-leave-the-process",
	}
	publisher.PublishUser(context.Background(), events.TypeUserRegistered, user)

	if backend.channel != "user-events" {
		t.Fatalf("published to %q", backend.channel)
	}
	if backend.attrs["type"] != events.TypeUserRegistered {
		t.Fatalf("unexpected attrs: %v", backend.attrs)
	}

	var envelope events.Envelope
	if err := json.Unmarshal(backend.data, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.ID == "" {
		t.Fatal("expected event id")
	}
	if envelope.Type != events.TypeUserRegistered {
		t.Fatalf("unexpected type: %q", envelope.Type)
	}
	if envelope.User.ID != 7 || envelope.User.Email != "a@b.com" {
		t.Fatalf("unexpected user payload: %+v", envelope.User)
	}
	if strings.Contains(string(backend.data), "should-never-leave-the-process") {
		t.Fatal("password hash leaked into event payload")
	}
}

func TestPublishUserNoBroker(t *testing.T) {
	publisher := events.NewPublisher(nil, "user-events", nil)
	// Must be a no-op, not a panic.
	publisher.PublishUser(context.Background(), events.TypeUserDeleted, types.User{ID: 1})
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
