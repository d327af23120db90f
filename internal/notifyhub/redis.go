package notifyhub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// notifyChannel is the single Redis pub/sub channel every groupchatd
// replica publishes to and subscribes on, so a notify action raised by
// whichever replica happens to own a chat's in-memory core still reaches
// websocket clients parked on any other replica.
const notifyChannel = "groupchat:notify"

// hotChatThreshold mirrors the teacher's hotKeyThreshold in
// internal/cache/redis_cache.go: a chat notified this many times within
// the tracking window is logged as hot, the same "notice the busy keys"
// instinct applied to chat names instead of cache keys.
const hotChatThreshold = 100

type wireNotification struct {
	Users      []string `json:"users"`
	Chat       string   `json:"chat"`
	EventIndex uint32   `json:"eventIndex"`
}

// RedisBridge publishes local notify actions to Redis and relays
// notifications received from other replicas into the local Hub,
// adapted from CacheManager's client-wrapping shape in
// internal/cache/redis_cache.go — same client type, same logger,
// different purpose (fanout, not caching, and never a store of record).
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	logger *logrus.Logger

	hotChatsMu sync.Mutex
	hotChats   map[string]int64
}

func NewRedisBridge(client *redis.Client, hub *Hub, logger *logrus.Logger) *RedisBridge {
	return &RedisBridge{client: client, hub: hub, logger: logger, hotChats: make(map[string]int64)}
}

// Publish announces a notification to every replica, including this
// one — Subscribe's own delivery loop is what actually calls Hub.Notify,
// so the publisher never double-delivers by also calling it directly.
func (b *RedisBridge) Publish(ctx context.Context, users []ids.UserId, chat string, eventIndex ids.EventIndex) error {
	userStrs := make([]string, len(users))
	for i, u := range users {
		userStrs[i] = string(u)
	}
	data, err := json.Marshal(wireNotification{Users: userStrs, Chat: chat, EventIndex: uint32(eventIndex)})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, notifyChannel, data).Err()
}

// Subscribe blocks relaying every notification published on
// notifyChannel (by any replica) into the local Hub until ctx is
// cancelled.
func (b *RedisBridge) Subscribe(ctx context.Context) {
	sub := b.client.Subscribe(ctx, notifyChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var wn wireNotification
			if err := json.Unmarshal([]byte(msg.Payload), &wn); err != nil {
				b.logger.WithError(err).Error("invalid notification payload")
				continue
			}
			users := make([]ids.UserId, len(wn.Users))
			for i, u := range wn.Users {
				users[i] = ids.UserId(u)
			}
			b.trackHotChat(wn.Chat)
			b.hub.Notify(users, wn.Chat, ids.EventIndex(wn.EventIndex))
		}
	}
}

func (b *RedisBridge) trackHotChat(chat string) {
	b.hotChatsMu.Lock()
	defer b.hotChatsMu.Unlock()
	b.hotChats[chat]++
	if b.hotChats[chat] == hotChatThreshold {
		b.logger.WithField("chat", chat).Warn("chat notification rate is hot")
	}
}

// ResetHotChatCounters clears the hot-chat counters; callers run this on
// a ticker (e.g. every 5 minutes) so counts reflect recent activity
// rather than accumulating forever.
func (b *RedisBridge) ResetHotChatCounters(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.hotChatsMu.Lock()
			b.hotChats = make(map[string]int64)
			b.hotChatsMu.Unlock()
		}
	}
}
