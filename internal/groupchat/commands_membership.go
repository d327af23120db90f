package groupchat

import (
	"github.com/openmesh-chat/groupchat-core/internal/actions"
	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/invites"
	"github.com/openmesh-chat/groupchat-core/internal/members"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

type ChangeRoleResult int

const (
	ChangeRoleOK ChangeRoleResult = iota
	ChangeRoleUnchanged
	ChangeRoleUserNotInGroup
	ChangeRoleCallerNotInGroup
	ChangeRoleNotAuthorized
	ChangeRoleLastOwnerCannotBeDemoted
)

// ChangeRole promotes or demotes target, enforcing the hierarchy and
// last-owner rules in members.Roster.ChangeRole and, on success, pushing
// a RoleChanged event. Platform-wide moderators are out of scope here —
// only in-group authorization applies.
func (g *GroupChatCore) ChangeRole(env environment.Environment, caller, target ids.UserId, newRole permissions.Role) ChangeRoleResult {
	oldMember, ok := g.Members.Get(target)
	var oldRole permissions.Role
	if ok {
		oldRole = oldMember.Role
	}
	switch g.Members.ChangeRole(caller, target, newRole, g.Permissions, false) {
	case members.ChangeRoleSuccess:
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindRoleChanged, RoleChanged: &eventlog.RoleChangedData{
			UserIDs: []ids.UserId{target}, ChangedBy: caller, OldRole: int(oldRole), NewRole: int(newRole),
		}}, env.Now())
		return ChangeRoleOK
	case members.ChangeRoleUnchanged:
		return ChangeRoleUnchanged
	case members.ChangeRoleUserNotInGroup:
		return ChangeRoleUserNotInGroup
	case members.ChangeRoleCallerNotInGroup:
		return ChangeRoleCallerNotInGroup
	case members.ChangeRoleLastOwnerCannotBeDemoted:
		return ChangeRoleLastOwnerCannotBeDemoted
	default:
		return ChangeRoleNotAuthorized
	}
}

type RemoveMemberResult int

const (
	RemoveMemberOK RemoveMemberResult = iota
	RemoveMemberUserNotInGroup
	RemoveMemberCallerNotInGroup
	RemoveMemberNotAuthorized
	RemoveMemberCannotRemoveSelf
	RemoveMemberCannotRemoveOwner
)

// RemoveMember evicts target (optionally blocking them from rejoining a
// public group), matching remove_member in the original. Leave must be
// used to remove oneself.
func (g *GroupChatCore) RemoveMember(env environment.Environment, caller, target ids.UserId, block bool) RemoveMemberResult {
	switch g.Members.RemoveMember(caller, target, g.Permissions, false, block) {
	case members.RemoveMemberSuccess:
		kind := eventlog.KindParticipantsRemoved
		var blockData *eventlog.UsersBlockedData
		if block {
			blockData = &eventlog.UsersBlockedData{UserIDs: []ids.UserId{target}, BlockedBy: caller}
		}
		g.Log.PushMainEvent(eventlog.Event{Kind: kind, ParticipantsRemoved: &eventlog.ParticipantsRemovedData{
			UserIDs: []ids.UserId{target}, RemovedBy: caller,
		}}, env.Now())
		if blockData != nil {
			g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindUsersBlocked, UsersBlocked: blockData}, env.Now())
		}
		return RemoveMemberOK
	case members.RemoveMemberUserNotInGroup:
		return RemoveMemberUserNotInGroup
	case members.RemoveMemberCallerNotInGroup:
		return RemoveMemberCallerNotInGroup
	case members.RemoveMemberCannotRemoveSelf:
		return RemoveMemberCannotRemoveSelf
	case members.RemoveMemberCannotRemoveOwner:
		return RemoveMemberCannotRemoveOwner
	default:
		return RemoveMemberNotAuthorized
	}
}

type LeaveResult int

const (
	LeaveOK LeaveResult = iota
	LeaveUserNotInGroup
	LeaveLastOwnerCannotLeave
)

// Leave removes caller from the roster voluntarily.
func (g *GroupChatCore) Leave(env environment.Environment, caller ids.UserId) LeaveResult {
	switch g.Members.Leave(caller) {
	case members.LeaveSuccess:
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindParticipantLeft, ParticipantLeft: &eventlog.ParticipantLeftData{UserId: caller}}, env.Now())
		return LeaveOK
	case members.LeaveLastOwnerCannotLeave:
		return LeaveLastOwnerCannotLeave
	default:
		return LeaveUserNotInGroup
	}
}

type InviteUsersResult int

const (
	InviteUsersOK InviteUsersResult = iota
	InviteUsersCallerNotInGroup
	InviteUsersNotAuthorized
	InviteUsersTooMany
)

// InviteUsers records an invitation for each user not already a member,
// already invited or blocked, capped at invites.MaxInvites per call. The
// visibility floor each invitee will get on joining is fixed now, at
// invite time, to the log's current frontier (or to 0 when the group is
// public, since its history is open anyway) — matching the original's
// rule that an invite never grants retroactive access to history that
// predates it.
func (g *GroupChatCore) InviteUsers(env environment.Environment, caller ids.UserId, userIDs []ids.UserId) (InviteUsersResult, []ids.UserId) {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return InviteUsersCallerNotInGroup, nil
	}
	if !member.Role.CanInviteUsers(g.Permissions) {
		return InviteUsersNotAuthorized, nil
	}
	if len(userIDs) > invites.MaxInvites {
		return InviteUsersTooMany, nil
	}

	now := env.Now()
	frontier := ids.EventIndex(0)
	if latest, ok := g.Log.MainReader(0).LatestEventIndex(); ok {
		frontier = latest + 1
	}
	minVisible := frontier
	if g.IsPublic {
		minVisible = 0
	}

	var invited []ids.UserId
	for _, u := range userIDs {
		if _, ok := g.Members.Get(u); ok {
			continue
		}
		if g.Members.IsBlocked(u) {
			continue
		}
		if g.Invited.IsInvited(u) {
			continue
		}
		g.Invited.Add(u, invites.Invitation{
			InvitedBy: caller, Timestamp: now,
			MinVisibleEventIndex: minVisible,
		})
		invited = append(invited, u)
	}
	if len(invited) > 0 {
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindUsersInvited, UsersInvited: &eventlog.UsersInvitedData{
			UserIDs: invited, InvitedBy: caller,
		}}, now)
		g.Actions.Push(actions.Action{Kind: actions.KindSendPushNotification, PushUsers: invited, PushPreview: "You've been invited to " + g.Name})
	}
	return InviteUsersOK, invited
}

type JoinGroupResult int

const (
	JoinGroupOK JoinGroupResult = iota
	JoinGroupAlreadyInGroup
	JoinGroupBlocked
	JoinGroupNotInvited
	JoinGroupFrozen
)

// JoinGroup admits caller as a Member: immediately if the group is
// public (or they hold a live invitation), rejected otherwise. A public
// join with no invitation on file sees nothing before the moment they
// joined; an invited join sees back to the floor fixed when InviteUsers
// ran.
func (g *GroupChatCore) JoinGroup(env environment.Environment, caller ids.UserId) JoinGroupResult {
	if g.Frozen {
		return JoinGroupFrozen
	}
	if _, ok := g.Members.Get(caller); ok {
		return JoinGroupAlreadyInGroup
	}
	if g.Members.IsBlocked(caller) {
		return JoinGroupBlocked
	}

	now := env.Now()
	minVisible := ids.EventIndex(0)
	if latest, ok := g.Log.MainReader(0).LatestEventIndex(); ok {
		minVisible = latest + 1
	}

	if inv, invited := g.Invited.Get(caller); invited {
		minVisible = inv.MinVisibleEventIndex
		g.Invited.Remove(caller, now)
	} else if !g.IsPublic {
		return JoinGroupNotInvited
	}

	g.Members.Add(&members.Member{
		UserId: caller, DateAdded: now, Role: permissions.RoleMember,
		MinVisibleEventIndex: minVisible,
	})
	g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindParticipantJoined, ParticipantJoined: &eventlog.ParticipantJoinedData{UserId: caller}}, now)
	return JoinGroupOK
}

type FollowThreadResult int

const (
	FollowThreadOK FollowThreadResult = iota
	FollowThreadCallerNotInGroup
	FollowThreadAlreadyFollowing
	FollowThreadNotFound
)

// FollowThread explicitly (non-stickily) subscribes caller to root.
func (g *GroupChatCore) FollowThread(caller ids.UserId, root ids.MessageIndex) FollowThreadResult {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return FollowThreadCallerNotInGroup
	}
	if _, ok := g.Log.MainReader(0).MessageByIndex(root); !ok {
		return FollowThreadNotFound
	}
	if !member.FollowThread(root) {
		return FollowThreadAlreadyFollowing
	}
	return FollowThreadOK
}

type UnfollowThreadResult int

const (
	UnfollowThreadOK UnfollowThreadResult = iota
	UnfollowThreadCallerNotInGroup
	UnfollowThreadNotFollowing
)

// UnfollowThread is sticky: it also suppresses future auto-follow for
// root (e.g. from a later mention), matching unfollow_thread's effect on
// add_thread in the original.
func (g *GroupChatCore) UnfollowThread(caller ids.UserId, root ids.MessageIndex) UnfollowThreadResult {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return UnfollowThreadCallerNotInGroup
	}
	if !member.UnfollowThread(root) {
		return UnfollowThreadNotFollowing
	}
	return UnfollowThreadOK
}
