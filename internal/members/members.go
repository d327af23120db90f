// Package members implements the group roster: per-member role,
// visibility floor, mentions and thread-follow state, grounded on
// GroupMembers/GroupMemberInternal in the original group_chat_core.
package members

import (
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

// maxMentions bounds how many mentions a single member's index retains;
// the oldest are dropped once the cap is hit, matching the original's
// bounded mentions index (unbounded growth would make every member's
// state scale with total chat history rather than their own activity).
const maxMentions = 500

// Mention records one place a member was mentioned, for their "jump to
// mentions" view.
type Mention struct {
	ThreadRootMessageIndex *ids.MessageIndex
	MessageIndex           ids.MessageIndex
	Timestamp              ids.TimestampMillis
}

// Mentions is one member's bounded mention history.
type Mentions struct {
	items []Mention
}

func (m *Mentions) Add(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, now ids.TimestampMillis) {
	m.items = append(m.items, Mention{ThreadRootMessageIndex: threadRoot, MessageIndex: messageIndex, Timestamp: now})
	if len(m.items) > maxMentions {
		m.items = m.items[len(m.items)-maxMentions:]
	}
}

func (m *Mentions) Since(since ids.TimestampMillis) []Mention {
	out := make([]Mention, 0)
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].Timestamp <= since {
			break
		}
		out = append(out, m.items[i])
	}
	return out
}

// ProposalVoteEntry records every poll-message a member voted on at one
// shared timestamp, matching proposal_votes (a timestamp -> MessageIndex[]
// map) in the original member model.
type ProposalVoteEntry struct {
	Timestamp      ids.TimestampMillis
	MessageIndexes []ids.MessageIndex
}

// Member is one group participant's state.
type Member struct {
	UserId                 ids.UserId
	DateAdded              ids.TimestampMillis
	Role                   permissions.Role
	MinVisibleEventIndex   ids.EventIndex
	MinVisibleMessageIndex ids.MessageIndex
	NotificationsMuted     bool
	NotificationsMutedAt   ids.TimestampMillis
	Suspended              bool
	RulesAccepted          *ids.Version
	RulesAcceptedAt        ids.TimestampMillis
	IsBot                  bool
	Mentions               Mentions
	ProposalVotes          []ProposalVoteEntry
	Threads                map[ids.MessageIndex]bool
	UnfollowedThreads      map[ids.MessageIndex]bool
}

// RecordProposalVote appends messageIndex to the vote entry for `now`,
// starting a new entry unless the most recent one shares the timestamp.
func (m *Member) RecordProposalVote(now ids.TimestampMillis, messageIndex ids.MessageIndex) {
	if n := len(m.ProposalVotes); n > 0 && m.ProposalVotes[n-1].Timestamp == now {
		m.ProposalVotes[n-1].MessageIndexes = append(m.ProposalVotes[n-1].MessageIndexes, messageIndex)
		return
	}
	m.ProposalVotes = append(m.ProposalVotes, ProposalVoteEntry{Timestamp: now, MessageIndexes: []ids.MessageIndex{messageIndex}})
}

// ProposalVotesSince returns every vote entry recorded after since, most
// recent first.
func (m *Member) ProposalVotesSince(since ids.TimestampMillis) []ProposalVoteEntry {
	out := make([]ProposalVoteEntry, 0)
	for i := len(m.ProposalVotes) - 1; i >= 0; i-- {
		if m.ProposalVotes[i].Timestamp <= since {
			break
		}
		out = append(out, m.ProposalVotes[i])
	}
	return out
}

// AddThread auto-follows root unless the member has explicitly and
// "stickily" unfollowed it before — matching add_thread's rule in the
// original so a member who left a thread on purpose isn't yanked back
// into it just because someone mentions them there again.
func (m *Member) AddThread(root ids.MessageIndex) {
	if m.UnfollowedThreads[root] {
		return
	}
	if m.Threads == nil {
		m.Threads = make(map[ids.MessageIndex]bool)
	}
	m.Threads[root] = true
}

// FollowThread is an explicit follow: it clears any sticky unfollow.
func (m *Member) FollowThread(root ids.MessageIndex) bool {
	already := m.Threads[root]
	delete(m.UnfollowedThreads, root)
	if m.Threads == nil {
		m.Threads = make(map[ids.MessageIndex]bool)
	}
	m.Threads[root] = true
	return !already
}

// UnfollowThread is sticky: future AddThread calls for root will no
// longer auto-follow this member in.
func (m *Member) UnfollowThread(root ids.MessageIndex) bool {
	if !m.Threads[root] {
		return false
	}
	delete(m.Threads, root)
	if m.UnfollowedThreads == nil {
		m.UnfollowedThreads = make(map[ids.MessageIndex]bool)
	}
	m.UnfollowedThreads[root] = true
	return true
}

func (m *Member) IsFollowing(root ids.MessageIndex) bool { return m.Threads[root] }

// Roster owns every current member of one group.
type Roster struct {
	byUser    map[ids.UserId]*Member
	blocked   map[ids.UserId]bool
	ownerCnt  int
}

func NewRoster() *Roster {
	return &Roster{byUser: make(map[ids.UserId]*Member), blocked: make(map[ids.UserId]bool)}
}

// Add inserts a new member, matching the original's add_member. Callers
// are responsible for ensuring the user is not already present.
func (r *Roster) Add(m *Member) {
	r.byUser[m.UserId] = m
	if m.Role.IsOwner() {
		r.ownerCnt++
	}
}

func (r *Roster) Get(user ids.UserId) (*Member, bool) {
	m, ok := r.byUser[user]
	return m, ok
}

func (r *Roster) Len() int       { return len(r.byUser) }
func (r *Roster) OwnerCount() int { return r.ownerCnt }

func (r *Roster) Iter() []*Member {
	out := make([]*Member, 0, len(r.byUser))
	for _, m := range r.byUser {
		out = append(out, m)
	}
	return out
}

func (r *Roster) Block(user ids.UserId)   { r.blocked[user] = true }
func (r *Roster) Unblock(user ids.UserId) { delete(r.blocked, user) }
func (r *Roster) IsBlocked(user ids.UserId) bool { return r.blocked[user] }

// ChangeRoleResult mirrors ChangeRoleResult in the original.
type ChangeRoleResult int

const (
	ChangeRoleSuccess ChangeRoleResult = iota
	ChangeRoleUnchanged
	ChangeRoleUserNotInGroup
	ChangeRoleCallerNotInGroup
	ChangeRoleNotAuthorized
	ChangeRoleLastOwnerCannotBeDemoted
)

// ChangeRole applies the same hierarchy rules as change_role in the
// original: a caller may only move a target to a role they themselves
// outrank-or-equal, may never touch someone who already outranks them,
// and may never demote the group's last remaining owner. Platform-wide
// moderators (tracked outside this group entirely) skip the hierarchy
// checks, mirroring the original's is_caller_platform_moderator escape
// hatch; the last-owner rule still applies to them.
func (r *Roster) ChangeRole(caller, target ids.UserId, newRole permissions.Role, perms permissions.GroupPermissions, callerIsPlatformModerator bool) ChangeRoleResult {
	callerMember, ok := r.byUser[caller]
	if !ok {
		return ChangeRoleCallerNotInGroup
	}
	targetMember, ok := r.byUser[target]
	if !ok {
		return ChangeRoleUserNotInGroup
	}
	if targetMember.Role == newRole {
		return ChangeRoleUnchanged
	}

	authorized := callerIsPlatformModerator
	if !authorized {
		if newRole == permissions.RoleOwner {
			authorized = callerMember.Role.IsOwner()
		} else {
			authorized = callerMember.Role.CanChangeRoles(perms) &&
				callerMember.Role >= targetMember.Role &&
				callerMember.Role >= newRole
		}
	}
	if !authorized {
		return ChangeRoleNotAuthorized
	}

	if targetMember.Role.IsOwner() && newRole != permissions.RoleOwner && r.ownerCnt <= 1 {
		return ChangeRoleLastOwnerCannotBeDemoted
	}

	if targetMember.Role.IsOwner() {
		r.ownerCnt--
	}
	targetMember.Role = newRole
	if newRole.IsOwner() {
		r.ownerCnt++
	}
	return ChangeRoleSuccess
}

// RemoveMemberResult mirrors remove_member's result set.
type RemoveMemberResult int

const (
	RemoveMemberSuccess RemoveMemberResult = iota
	RemoveMemberUserNotInGroup
	RemoveMemberCallerNotInGroup
	RemoveMemberNotAuthorized
	RemoveMemberCannotRemoveSelf
	RemoveMemberCannotRemoveOwner
)

// RemoveMember deletes target from the roster, optionally blocking them
// too. Matches remove_member in the original: callers may never target
// themselves (use Leave) or an owner (owners must be demoted first).
func (r *Roster) RemoveMember(caller, target ids.UserId, perms permissions.GroupPermissions, callerIsPlatformModerator, block bool) RemoveMemberResult {
	if caller == target {
		return RemoveMemberCannotRemoveSelf
	}
	callerMember, ok := r.byUser[caller]
	if !ok {
		return RemoveMemberCallerNotInGroup
	}
	targetMember, ok := r.byUser[target]
	if !ok {
		return RemoveMemberUserNotInGroup
	}
	if targetMember.Role.IsOwner() {
		return RemoveMemberCannotRemoveOwner
	}
	if !callerIsPlatformModerator && !callerMember.Role.CanRemoveMembersWithRole(targetMember.Role, perms) {
		return RemoveMemberNotAuthorized
	}
	delete(r.byUser, target)
	if block {
		r.Block(target)
	}
	return RemoveMemberSuccess
}

// LeaveResult mirrors leave's result set.
type LeaveResult int

const (
	LeaveSuccess LeaveResult = iota
	LeaveUserNotInGroup
	LeaveLastOwnerCannotLeave
)

// Leave removes user from the roster voluntarily; the group's last
// owner may not leave until ownership is transferred, matching
// LastOwnerCannotLeave in the original.
func (r *Roster) Leave(user ids.UserId) LeaveResult {
	m, ok := r.byUser[user]
	if !ok {
		return LeaveUserNotInGroup
	}
	if m.Role.IsOwner() && r.ownerCnt <= 1 {
		return LeaveLastOwnerCannotLeave
	}
	if m.Role.IsOwner() {
		r.ownerCnt--
	}
	delete(r.byUser, user)
	return LeaveSuccess
}
