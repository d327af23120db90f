package groupchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

func newTestGroup(t *testing.T, owner ids.UserId, isPublic bool) (*GroupChatCore, *environment.Test) {
	t.Helper()
	env := environment.NewTest(owner, 1_000)
	g, err := New(env, NewArgs{
		CreatedBy: owner, Name: "general", Description: "desc",
		RulesText: "be nice", RulesEnabled: false, IsPublic: isPublic,
	})
	require.NoError(t, err)
	return g, env
}

func TestSendMessagePrivateRequiresInvite(t *testing.T) {
	g, env := newTestGroup(t, "alice", false)
	res := g.JoinGroup(env, "bob")
	assert.Equal(t, JoinGroupNotInvited, res)

	invRes, invited := g.InviteUsers(env, "alice", []ids.UserId{"bob"})
	require.Equal(t, InviteUsersOK, invRes)
	require.Equal(t, []ids.UserId{"bob"}, invited)

	res = g.JoinGroup(env, "bob")
	assert.Equal(t, JoinGroupOK, res)

	sendRes, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(),
		Content: eventlog.TextContent("hello @bob"), MentionedUserIds: []ids.UserId{"bob"},
	})
	require.Nil(t, cverr)
	require.Equal(t, SendSuccess, sendRes)
	require.NotNil(t, success)
	assert.Contains(t, success.NotifyUsers, ids.UserId("bob"))
}

func TestFirstThreadReplyNotifiesRootAuthor(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))

	_, rootSuccess, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("root message"),
	})
	require.Nil(t, cverr)
	require.NotNil(t, rootSuccess)

	res, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "bob", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("first reply"),
		ThreadRoot: &rootSuccess.MessageIndex,
	})
	require.Nil(t, cverr)
	require.Equal(t, SendSuccess, res)
	assert.Contains(t, success.NotifyUsers, ids.UserId("alice"), "root author should be notified of the first reply")
}

func TestSendMessageNotifiesUnmutedMembersWithNoMentions(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "carol"))

	carol, ok := g.Members.Get("carol")
	require.True(t, ok)
	carol.NotificationsMuted = true

	_, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("plain top-level message"),
	})
	require.Nil(t, cverr)
	require.NotNil(t, success)
	assert.Contains(t, success.NotifyUsers, ids.UserId("bob"), "an unmuted member is a notification candidate for any top-level message")
	assert.NotContains(t, success.NotifyUsers, ids.UserId("carol"), "a muted member is never notified absent a mention")
}

func TestSendMessageEveryoneMentionUpdatesMentionsIndex(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))

	_, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("hello @everyone"),
	})
	require.Nil(t, cverr)
	require.NotNil(t, success)
	assert.Contains(t, success.NotifyUsers, ids.UserId("bob"))

	bob, ok := g.Members.Get("bob")
	require.True(t, ok)
	assert.Len(t, bob.Mentions.Since(0), 1, "an @everyone message must add a mentions-index entry for every member, not just notify them")
}

func TestDeletingPinnedMessageUnpinsIt(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	_, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("pin me"),
	})
	require.Nil(t, cverr)

	pinRes := g.PinMessage(env, "alice", success.MessageIndex)
	require.Equal(t, PinOK, pinRes)
	assert.Contains(t, g.Log.PinnedMessages(), success.MessageIndex)

	outcomes := g.DeleteMessages(env, "alice", nil, []ids.MessageIndex{success.MessageIndex})
	assert.Equal(t, DeleteOK, outcomes[success.MessageIndex])
	assert.NotContains(t, g.Log.PinnedMessages(), success.MessageIndex, "deleting a pinned message must unpin it")
}

func TestEventsRejectsStaleReplica(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	_, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("hi"),
	})
	require.Nil(t, cverr)

	aheadOfReplica := success.EventIndex + 100
	_, qerr := g.Events("alice", nil, nil, true, 10, 10, &aheadOfReplica)
	assert.Equal(t, QueryErrReplicaNotUpToDate, qerr)

	current := success.EventIndex
	_, qerr = g.Events("alice", nil, nil, true, 10, 10, &current)
	assert.Equal(t, QueryErrNone, qerr)
}

func TestLastOwnerCannotLeaveOrBeDemoted(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)

	assert.Equal(t, LeaveLastOwnerCannotLeave, g.Leave(env, "alice"))
	assert.Equal(t, ChangeRoleLastOwnerCannotBeDemoted, g.ChangeRole(env, "alice", "alice", permissions.RoleAdmin))

	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))
	require.Equal(t, ChangeRoleOK, g.ChangeRole(env, "alice", "bob", permissions.RoleOwner))

	assert.Equal(t, LeaveOK, g.Leave(env, "alice"), "with a second owner in place, the first may now leave")
}

func TestHasUpdatesSinceReflectsRoleChange(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))

	checkpoint := env.NowMillis
	assert.False(t, g.HasUpdatesSince("bob", checkpoint), "nothing has changed yet")

	env.NowMillis = checkpoint + 100
	require.Equal(t, ChangeRoleOK, g.ChangeRole(env, "alice", "bob", permissions.RoleModerator))

	assert.True(t, g.HasUpdatesSince("bob", checkpoint), "bob's role change is logged as a RoleChanged event after the checkpoint, so it must register")
}

func TestSelectedGroupUpdatesCollapsesPinThenUnpin(t *testing.T) {
	g, env := newTestGroup(t, "alice", true)
	_, success, cverr := g.SendMessage(env, SendMessageArgs{
		Caller: "alice", MessageID: ids.NewMessageId(), Content: eventlog.TextContent("pin me"),
	})
	require.Nil(t, cverr)

	checkpoint := env.NowMillis
	env.NowMillis = checkpoint + 100

	require.Equal(t, PinOK, g.PinMessage(env, "alice", success.MessageIndex))
	require.Equal(t, UnpinOK, g.UnpinMessage(env, "alice", success.MessageIndex))

	updates, qerr := g.SelectedGroupUpdatesFromEvents("alice", checkpoint)
	require.Equal(t, QueryErrNone, qerr)
	assert.NotContains(t, updates.PinnedAdded, success.MessageIndex)
	assert.Contains(t, updates.PinnedRemoved, success.MessageIndex, "a pin collapsed by a later unpin nets out as removed, never in both sets")
}

func TestPrivateToPublicTransitionRequiresOwner(t *testing.T) {
	g, env := newTestGroup(t, "alice", false)
	_, _ = g.InviteUsers(env, "alice", []ids.UserId{"bob"})
	require.Equal(t, JoinGroupOK, g.JoinGroup(env, "bob"))
	require.Equal(t, ChangeRoleOK, g.ChangeRole(env, "alice", "bob", permissions.RoleAdmin))

	isPublic := true
	res := g.Update(env, "bob", UpdateArgs{IsPublic: &isPublic})
	assert.Equal(t, UpdateNotAuthorized, res, "an admin may not flip a private group public")

	res = g.Update(env, "alice", UpdateArgs{IsPublic: &isPublic})
	assert.Equal(t, UpdateOK, res)
	assert.True(t, g.IsPublic)
}
