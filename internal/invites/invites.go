// Package invites implements the pending-invitation container, grounded
// on InvitedUsers in the original group_chat_core. Invited users are not
// members: they cannot read events or act in the group until they accept
// and join, at which point their entry is removed. The summary and
// selected-updates queries do serve them, from their invitation's
// visibility floor.
package invites

import "github.com/openmesh-chat/groupchat-core/internal/ids"

// MaxInvites bounds how many invitations a single invite_users call may
// create at once, carried over unchanged from the original.
const MaxInvites = 100

// Invitation records who invited whom, and the visibility floor the
// invitee will get if they join — fixed at invite time so an invite
// issued before some history existed never grants retroactive access.
type Invitation struct {
	InvitedBy            ids.UserId
	Timestamp            ids.TimestampMillis
	MinVisibleEventIndex ids.EventIndex
	MinVisibleMessageIdx ids.MessageIndex
}

// Container tracks all outstanding invitations for one group.
type Container struct {
	byUser      map[ids.UserId]Invitation
	lastUpdated ids.TimestampMillis
}

func New() *Container {
	return &Container{byUser: make(map[ids.UserId]Invitation)}
}

// Add records a new invitation, overwriting any existing one for the
// same user (re-inviting refreshes the visibility floor and timestamp).
func (c *Container) Add(user ids.UserId, inv Invitation) {
	c.byUser[user] = inv
	if inv.Timestamp > c.lastUpdated {
		c.lastUpdated = inv.Timestamp
	}
}

// Remove drops an invitation, used both when the invitee joins and when
// an admin revokes it outright.
func (c *Container) Remove(user ids.UserId, now ids.TimestampMillis) bool {
	if _, ok := c.byUser[user]; !ok {
		return false
	}
	delete(c.byUser, user)
	c.lastUpdated = now
	return true
}

func (c *Container) Get(user ids.UserId) (Invitation, bool) {
	inv, ok := c.byUser[user]
	return inv, ok
}

func (c *Container) IsInvited(user ids.UserId) bool {
	_, ok := c.byUser[user]
	return ok
}

func (c *Container) Len() int { return len(c.byUser) }

func (c *Container) LastUpdated() ids.TimestampMillis { return c.lastUpdated }

// Users returns every currently-invited user id, order unspecified.
func (c *Container) Users() []ids.UserId {
	out := make([]ids.UserId, 0, len(c.byUser))
	for u := range c.byUser {
		out = append(out, u)
	}
	return out
}
