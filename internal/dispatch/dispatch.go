// Package dispatch drains GroupChatCore's outbound action queue and
// carries each action out against real infrastructure: notify-user
// actions are published to Kafka for the fan-out/notification pipeline
// to pick up, fulfilling the publishEvent TODO the teacher's
// ChatRepository left as a stub ("Implement Kafka publishing for
// events"), grounded on the segmentio/kafka-go usage pattern the rest of
// the pack uses for event publication.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/openmesh-chat/groupchat-core/internal/actions"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/metrics"
)

// notifyMessage is the wire shape published for KindNotifyUsers actions.
type notifyMessage struct {
	Users     []string `json:"users"`
	Chat      string   `json:"chat"`
	EventID   uint32   `json:"event_id"`
	Timestamp int64    `json:"timestamp"`
}

type pushMessage struct {
	Users   []string `json:"users"`
	Preview string   `json:"preview"`
}

// LiveNotifier delivers a notify action to connected clients in real
// time; set Dispatcher.Live to internal/notifyhub's RedisBridge.Publish
// (or nil to skip real-time delivery entirely, e.g. in tests).
type LiveNotifier func(ctx context.Context, users []ids.UserId, chat string, eventIndex ids.EventIndex) error

// Dispatcher drains a Queue, publishes every action to Kafka for the
// durable processing pipeline, and — for NotifyUsers actions only —
// additionally calls Live for immediate websocket delivery.
type Dispatcher struct {
	writer *kafka.Writer
	logger *logrus.Logger
	Live   LiveNotifier
}

func New(brokers []string, topic string, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger,
	}
}

func (d *Dispatcher) Close() error { return d.writer.Close() }

// Drain pulls every pending action off q and publishes it, logging (but
// not retrying) failures — matching the fire-and-forget
// `go r.publishEvent(...)` shape the teacher calls after committing a
// write, except here it runs on the runtime's own drain loop rather than
// a goroutine spawned inside the command handler, per the synchronous
// handler rule this core follows.
func (d *Dispatcher) Drain(ctx context.Context, q *actions.Queue) {
	for _, a := range q.Drain() {
		d.dispatchOne(ctx, a)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, a actions.Action) {
	var key string
	var payload interface{}
	var kind string

	switch a.Kind {
	case actions.KindNotifyUsers:
		kind = "notify_users"
		key = a.NotifyChat
		payload = notifyMessage{
			Users:     userStrings(a.NotifyUsers),
			Chat:      a.NotifyChat,
			EventID:   uint32(a.NotifyEventID),
			Timestamp: time.Now().UnixMilli(),
		}
		if d.Live != nil {
			if err := d.Live(ctx, a.NotifyUsers, a.NotifyChat, a.NotifyEventID); err != nil {
				d.logger.WithError(err).Error("live notify delivery failed")
			}
		}
	case actions.KindSendPushNotification:
		kind = "push_notification"
		payload = pushMessage{Users: userStrings(a.PushUsers), Preview: a.PushPreview}
	case actions.KindTransferCkbtc:
		kind = "transfer_ckbtc"
		payload = a
	}

	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.WithError(err).WithField("kind", kind).Error("marshal action failed")
		return
	}
	if err := d.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: body}); err != nil {
		d.logger.WithError(err).WithField("kind", kind).Error("publish action failed")
		return
	}
	metrics.ActionsDispatched.WithLabelValues(kind).Inc()
}

func userStrings(users []ids.UserId) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = string(u)
	}
	return out
}

