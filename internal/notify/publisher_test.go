package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"trailhub/internal/models"
)

func testValkey(t *testing.T) *redis.Client {
	t.Helper()
	host := os.Getenv("VALKEY_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("VALKEY_PORT")
	if port == "" {
		port = "6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("VALKEY_PASSWORD"),
		DB:       15,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("skipping integration test: Valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestChannel(t *testing.T) {
	id := uuid.MustParse("6f1c2d8e-0000-4000-8000-000000000001")
	if got := Channel(id); got != "notifications:6f1c2d8e-0000-4000-8000-000000000001" {
		t.Errorf("Channel = %q", got)
	}
}

func TestRedisPublisher_RoundTrip(t *testing.T) {
	client := testValkey(t)
	pub := NewRedisPublisher(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user := uuid.New()
	ch, err := pub.Subscribe(ctx, user)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sent := &models.Notification{
		ID:          uuid.New(),
		RecipientID: user,
		ActorID:     uuid.New(),
		Type:        models.NotificationMessage,
		Ref:         models.MessageRef(uuid.New()),
		Text:        "alice sent you a message",
	}
	if err := pub.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ch:
		if got.ID != sent.ID || got.Ref != sent.Ref {
			t.Errorf("received %+v, want %+v", got, sent)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for notification")
	}
}
