package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskmarket/usecase"
)

// Notification is what a user sees in their inbox.
type Notification struct {
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationSink keeps a capped inbox list per account and publishes each
// notification on the account's channel for live clients.
type NotificationSink struct {
	client  *redislib.Client
	prefix  string
	maxKeep int64
}

func NewNotificationSink(client *redislib.Client, maxKeep int64) *NotificationSink {
	if maxKeep <= 0 {
		maxKeep = 100
	}
	return &NotificationSink{
		client:  client,
		prefix:  "notifications:",
		maxKeep: maxKeep,
	}
}

func (s *NotificationSink) Notify(ctx context.Context, recipientID, message, link string) error {
	if recipientID == "" {
		return nil
	}
	payload, err := json.Marshal(Notification{
		RecipientID: recipientID,
		Message:     message,
		Link:        link,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	key := s.key(recipientID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, s.maxKeep-1)
	pipe.Publish(ctx, key, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

// Recent returns the newest notifications of an account.
func (s *NotificationSink) Recent(ctx context.Context, recipientID string, limit int64) ([]Notification, error) {
	if limit <= 0 || limit > s.maxKeep {
		limit = s.maxKeep
	}
	raw, err := s.client.LRange(ctx, s.key(recipientID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *NotificationSink) key(recipientID string) string {
	return s.prefix + recipientID
}

var _ usecase.Notifier = (*NotificationSink)(nil)
