package members

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

func newRosterWithOwner(owner ids.UserId) *Roster {
	r := NewRoster()
	r.Add(&Member{UserId: owner, Role: permissions.RoleOwner})
	return r
}

func TestLastOwnerCannotBeDemotedOrRemoved(t *testing.T) {
	r := newRosterWithOwner("alice")
	r.Add(&Member{UserId: "bob", Role: permissions.RoleAdmin})

	assert.Equal(t, ChangeRoleLastOwnerCannotBeDemoted, r.ChangeRole("alice", "alice", permissions.RoleAdmin, permissions.DefaultGroupPermissions(), false))
	assert.Equal(t, LeaveLastOwnerCannotLeave, r.Leave("alice"))
	assert.Equal(t, RemoveMemberCannotRemoveOwner, r.RemoveMember("bob", "alice", permissions.DefaultGroupPermissions(), false, false))
}

func TestChangeRoleHierarchy(t *testing.T) {
	r := newRosterWithOwner("alice")
	r.Add(&Member{UserId: "bob", Role: permissions.RoleMember})
	r.Add(&Member{UserId: "carol", Role: permissions.RoleAdmin})

	// A member cannot promote anyone.
	assert.Equal(t, ChangeRoleNotAuthorized, r.ChangeRole("bob", "carol", permissions.RoleModerator, permissions.DefaultGroupPermissions(), false))

	// An admin cannot promote someone to owner.
	assert.Equal(t, ChangeRoleNotAuthorized, r.ChangeRole("carol", "bob", permissions.RoleOwner, permissions.DefaultGroupPermissions(), false))

	// The owner can promote a member to admin.
	assert.Equal(t, ChangeRoleSuccess, r.ChangeRole("alice", "bob", permissions.RoleAdmin, permissions.DefaultGroupPermissions(), false))
}

func TestMentionsCapAtBound(t *testing.T) {
	var m Mentions
	for i := 0; i < maxMentions+10; i++ {
		m.Add(nil, ids.MessageIndex(i), ids.TimestampMillis(i))
	}
	assert.Len(t, m.items, maxMentions)
	assert.Equal(t, ids.MessageIndex(maxMentions+9), m.items[len(m.items)-1].MessageIndex)
}

func TestAddThreadRespectsStickyUnfollow(t *testing.T) {
	m := &Member{}
	root := ids.MessageIndex(1)

	m.AddThread(root)
	assert.True(t, m.IsFollowing(root))

	assert.True(t, m.UnfollowThread(root))
	assert.False(t, m.IsFollowing(root))

	m.AddThread(root)
	assert.False(t, m.IsFollowing(root), "a sticky unfollow must not be overridden by a later auto-follow")

	assert.True(t, m.FollowThread(root))
	assert.True(t, m.IsFollowing(root))
}
