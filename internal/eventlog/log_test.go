package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

func TestPushMessageAssignsDenseIndexes(t *testing.T) {
	l := New("general", "desc", "alice", 1000)

	w1, ok := l.PushMessage(PushMessageArgs{Sender: "alice", MessageID: ids.NewMessageId(), Content: TextContent("first"), Now: 1001})
	require.True(t, ok)
	w2, ok := l.PushMessage(PushMessageArgs{Sender: "alice", MessageID: ids.NewMessageId(), Content: TextContent("second"), Now: 1002})
	require.True(t, ok)

	assert.Equal(t, ids.MessageIndex(0), w1.Event.Message.MessageIndex)
	assert.Equal(t, ids.MessageIndex(1), w2.Event.Message.MessageIndex)
	assert.Greater(t, w2.Index, w1.Index)
}

func TestPinUnpinMaintainsSortedDedupedSet(t *testing.T) {
	l := New("general", "desc", "alice", 1000)
	for i := 0; i < 3; i++ {
		_, ok := l.PushMessage(PushMessageArgs{Sender: "alice", MessageID: ids.NewMessageId(), Content: TextContent("m"), Now: 1001})
		require.True(t, ok)
	}

	assert.True(t, l.PinMessage(2, 2000))
	assert.True(t, l.PinMessage(0, 2001))
	assert.False(t, l.PinMessage(0, 2002), "pinning an already-pinned message reports no-op")
	assert.Equal(t, []ids.MessageIndex{0, 2}, l.PinnedMessages())

	assert.True(t, l.UnpinMessage(0, 2003))
	assert.Equal(t, []ids.MessageIndex{2}, l.PinnedMessages())
}

func TestRemoveExpiredEventsRespectsTTL(t *testing.T) {
	l := New("general", "desc", "alice", 1000)
	ttl := int64(500)
	l.SetEventsTTL(&ttl)

	_, ok := l.PushMessage(PushMessageArgs{Sender: "alice", MessageID: ids.NewMessageId(), Content: TextContent("short lived"), Now: 1001})
	require.True(t, ok)

	result := l.RemoveExpiredEvents(1001 + 400)
	assert.Empty(t, result.MainRemoved, "not yet past its TTL deadline")

	result = l.RemoveExpiredEvents(1001 + 600)
	assert.Len(t, result.MainRemoved, 1)
}

func TestToggleReaction(t *testing.T) {
	l := New("general", "desc", "alice", 1000)
	w, ok := l.PushMessage(PushMessageArgs{Sender: "alice", MessageID: ids.NewMessageId(), Content: TextContent("react to me"), Now: 1001})
	require.True(t, ok)

	res := l.ToggleReaction(nil, w.Event.Message.MessageIndex, "bob", "👍", true)
	assert.Equal(t, ReactionSuccess, res)

	res = l.ToggleReaction(nil, w.Event.Message.MessageIndex, "bob", "👍", true)
	assert.Equal(t, ReactionNoChange, res)
}

func TestValidateForNewMessageRejectsEmptyText(t *testing.T) {
	err := ValidateForNewMessage(TextContent(""), "alice", false, "proposals-bot", false, 1000)
	require.NotNil(t, err)
}
