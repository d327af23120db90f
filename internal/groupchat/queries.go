package groupchat

import (
	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/members"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

// QueryError is returned by every read operation below when the caller
// cannot be served at all.
type QueryError int

const (
	QueryErrNone QueryError = iota
	QueryErrCallerNotInGroup
	QueryErrReplicaNotUpToDate
	QueryErrThreadNotFound
)

// checkReplica enforces the same precondition nearly every read in the
// original applies first: if the caller believes the replica has
// reached an event index it actually hasn't yet, refuse rather than
// silently serve stale or incomplete data.
func (g *GroupChatCore) checkReplica(latestClientEventIndex *ids.EventIndex) QueryError {
	if latestClientEventIndex == nil {
		return QueryErrNone
	}
	latest, ok := g.Log.MainReader(0).LatestEventIndex()
	if !ok || *latestClientEventIndex > latest {
		return QueryErrReplicaNotUpToDate
	}
	return QueryErrNone
}

// HasUpdatesSince is the cheap check callers make before asking for a
// full incremental summary: it also consults the caller's own
// date-added/mute/rules-accepted timestamps and the invitation
// container's last-updated mark, matching has_updates_since in the
// original, so a member whose own mute or rules-acceptance state just
// changed (which logs no event) still sees a pending update.
func (g *GroupChatCore) HasUpdatesSince(caller ids.UserId, since ids.TimestampMillis) bool {
	if m, ok := g.Members.Get(caller); ok {
		if m.DateAdded > since || m.NotificationsMutedAt > since || m.RulesAcceptedAt > since {
			return true
		}
	}
	return g.Log.HasUpdatesSince(since) || g.Invited.LastUpdated() > since
}

// summaryMinVisible resolves the visibility floor summary_updates_from_events
// uses: a member's own floor takes priority (even in a public group, since
// it reflects when *they* joined), then the public default, then an
// invited user's floor. Mirrors the original's member-first ordering.
func (g *GroupChatCore) summaryMinVisible(caller ids.UserId) (ids.EventIndex, *members.Member, bool) {
	if m, ok := g.Members.Get(caller); ok {
		return m.MinVisibleEventIndex, m, true
	}
	if g.IsPublic {
		return 0, nil, true
	}
	if inv, ok := g.Invited.Get(caller); ok {
		return inv.MinVisibleEventIndex, nil, true
	}
	return 0, nil, false
}

// SummaryUpdates is the incremental result of summary_updates_from_events:
// only fields that actually changed since `since` are populated.
type SummaryUpdates struct {
	Name             *string
	Description      *string
	AvatarID         **string
	IsPublic         *bool
	Frozen           *bool
	Permissions      *permissions.GroupPermissions
	RulesVersion     *ids.Version
	EventsTTLMillis  **int64
	Gate             **string
	LatestEventIndex ids.EventIndex
	AnyUpdates       bool

	// RoleChanged is true when a KindRoleChanged event within the window
	// names the caller.
	RoleChanged bool
	// Mentions are the caller's own mentions recorded after `since`.
	Mentions []members.Mention
	// UpdatedEvents is the bounded "recently touched" index plus any
	// poll messages the caller voted on after `since`, matching
	// updated_events in the original (capped at 1000 by the log's own
	// recency index; proposal-vote entries are appended uncapped, same
	// as the original's extend after the take(1000)).
	UpdatedEvents []eventlog.RecentUpdate
}

// SummaryUpdatesFromEvents folds the main log newest-event-first down to
// `since`, setting each field the first time (and only the first time)
// its owning event kind is seen — a first-wins scan identical in shape
// to summary_updates_from_events in the original, which stops as soon as
// it reaches an event at or before `since`. It also folds in the
// caller's own mentions, role changes, and proposal-vote derived
// updated-events, which the original computes per-caller rather than
// from the event log alone.
func (g *GroupChatCore) SummaryUpdatesFromEvents(caller ids.UserId, since ids.TimestampMillis) (SummaryUpdates, QueryError) {
	minVisible, member, ok := g.summaryMinVisible(caller)
	if !ok {
		return SummaryUpdates{}, QueryErrCallerNotInGroup
	}

	var out SummaryUpdates
	reader := g.Log.MainReader(minVisible)
	events := reader.Iter()
	for i := len(events) - 1; i >= 0; i-- {
		w := events[i]
		if w.Timestamp <= since {
			break
		}
		out.AnyUpdates = true
		if i == len(events)-1 {
			out.LatestEventIndex = w.Index
		}
		switch w.Event.Kind {
		case eventlog.KindGroupNameChanged:
			if out.Name == nil {
				n := w.Event.GroupNameChanged.NewName
				out.Name = &n
			}
		case eventlog.KindGroupDescriptionChanged:
			if out.Description == nil {
				d := w.Event.GroupDescriptionChanged.NewDescription
				out.Description = &d
			}
		case eventlog.KindAvatarChanged:
			if out.AvatarID == nil {
				a := w.Event.AvatarChanged.NewAvatarID
				out.AvatarID = &a
			}
		case eventlog.KindGroupVisibilityChanged:
			if out.IsPublic == nil {
				p := w.Event.GroupVisibilityChanged.NowPublic
				out.IsPublic = &p
			}
		case eventlog.KindEventsTTLUpdated:
			if out.EventsTTLMillis == nil {
				t := w.Event.EventsTTLUpdated.NewTTLMillis
				out.EventsTTLMillis = &t
			}
		case eventlog.KindGroupGateUpdated:
			if out.Gate == nil {
				gate := w.Event.GroupGateUpdated.NewGate
				out.Gate = &gate
			}
		case eventlog.KindPermissionsChanged:
			if out.Permissions == nil {
				p := g.Permissions
				out.Permissions = &p
			}
		case eventlog.KindGroupRulesChanged:
			if out.RulesVersion == nil {
				v := g.Rules.Text.Version
				out.RulesVersion = &v
			}
		case eventlog.KindRoleChanged:
			if member != nil {
				for _, u := range w.Event.RoleChanged.UserIDs {
					if u == member.UserId {
						out.RoleChanged = true
					}
				}
			}
		}
	}

	updatedEvents := append([]eventlog.RecentUpdate(nil), g.Log.IterRecentlyUpdatedEvents(since)...)
	if member != nil {
		out.Mentions = member.Mentions.Since(since)
		for _, entry := range member.ProposalVotesSince(since) {
			for _, mi := range entry.MessageIndexes {
				if w, ok := reader.MessageByIndex(mi); ok {
					updatedEvents = append(updatedEvents, eventlog.RecentUpdate{EventIndex: w.Index, Timestamp: entry.Timestamp})
				}
			}
		}
	}
	out.UpdatedEvents = updatedEvents
	out.AnyUpdates = out.AnyUpdates || out.RoleChanged || len(out.Mentions) > 0 || len(out.UpdatedEvents) > 0
	return out, QueryErrNone
}

// SelectedGroupUpdates is the result of selected_group_updates_from_events:
// membership-shaped deltas, deduplicated per user via a "seen" set so a
// user touched by several events (e.g. added then promoted) appears only
// once, plus the block list and invitation deltas the original also
// reports alongside membership.
type SelectedGroupUpdates struct {
	UsersUpdated          []ids.UserId
	MembersAddedOrUpdated []ids.UserId
	MembersRemoved        []ids.UserId
	BlockedUsersAdded     []ids.UserId
	BlockedUsersRemoved   []ids.UserId
	InvitedUsers          []ids.UserId
	PinnedAdded           []ids.MessageIndex
	PinnedRemoved         []ids.MessageIndex
	LatestEventIndex      ids.EventIndex
}

// selectedMinVisible resolves the visibility floor
// selected_group_updates_from_events uses: the public default takes
// priority over a member's own floor (unlike summaryMinVisible), then an
// invited user's floor; neither membership nor invitation in a private
// group means the caller cannot be served at all. Mirrors the original's
// is_public-first ordering.
func (g *GroupChatCore) selectedMinVisible(caller ids.UserId) (ids.EventIndex, bool) {
	if g.IsPublic {
		return 0, true
	}
	if m, ok := g.Members.Get(caller); ok {
		return m.MinVisibleEventIndex, true
	}
	if inv, ok := g.Invited.Get(caller); ok {
		return inv.MinVisibleEventIndex, true
	}
	return 0, false
}

// SelectedGroupUpdatesFromEvents scans the same newest-first window as
// SummaryUpdatesFromEvents but accumulates membership/block/pin deltas,
// deduplicating touched users with a "users_updated" set exactly like
// UserUpdatesHandler in the original so repeated touches of the same
// user never double-count, and collapsing a pin immediately followed (or
// preceded, within the window) by its own unpin so the two added/removed
// sets never share a MessageIndex.
func (g *GroupChatCore) SelectedGroupUpdatesFromEvents(caller ids.UserId, since ids.TimestampMillis) (SelectedGroupUpdates, QueryError) {
	minVisible, ok := g.selectedMinVisible(caller)
	if !ok {
		return SelectedGroupUpdates{}, QueryErrCallerNotInGroup
	}

	var out SelectedGroupUpdates
	usersUpdated := make(map[ids.UserId]bool)
	blockedTouched := make(map[ids.UserId]bool)
	markMember := func(u ids.UserId, removed bool) {
		if usersUpdated[u] {
			return
		}
		usersUpdated[u] = true
		out.UsersUpdated = append(out.UsersUpdated, u)
		if removed {
			out.MembersRemoved = append(out.MembersRemoved, u)
		} else {
			out.MembersAddedOrUpdated = append(out.MembersAddedOrUpdated, u)
		}
	}
	markBlocked := func(u ids.UserId, blocked bool) {
		if blockedTouched[u] {
			return
		}
		blockedTouched[u] = true
		if blocked {
			out.BlockedUsersAdded = append(out.BlockedUsersAdded, u)
		} else {
			out.BlockedUsersRemoved = append(out.BlockedUsersRemoved, u)
		}
	}
	containsIndex := func(s []ids.MessageIndex, mi ids.MessageIndex) bool {
		for _, x := range s {
			if x == mi {
				return true
			}
		}
		return false
	}

	reader := g.Log.MainReader(minVisible)
	events := reader.Iter()
	for i := len(events) - 1; i >= 0; i-- {
		w := events[i]
		if w.Timestamp <= since {
			break
		}
		if i == len(events)-1 {
			out.LatestEventIndex = w.Index
		}
		switch w.Event.Kind {
		case eventlog.KindParticipantsAdded:
			for _, u := range w.Event.ParticipantsAdded.UserIDs {
				markMember(u, false)
			}
			for _, u := range w.Event.ParticipantsAdded.Unblocked {
				markBlocked(u, false)
			}
		case eventlog.KindParticipantJoined:
			markMember(w.Event.ParticipantJoined.UserId, false)
		case eventlog.KindParticipantsRemoved:
			for _, u := range w.Event.ParticipantsRemoved.UserIDs {
				markMember(u, true)
			}
		case eventlog.KindParticipantLeft:
			markMember(w.Event.ParticipantLeft.UserId, true)
		case eventlog.KindMembersAddedToPublicChannel:
			for _, u := range w.Event.MembersAddedToPublicChannel.UserIDs {
				markMember(u, false)
			}
		case eventlog.KindRoleChanged:
			for _, u := range w.Event.RoleChanged.UserIDs {
				markMember(u, false)
			}
		case eventlog.KindUsersBlocked:
			for _, u := range w.Event.UsersBlocked.UserIDs {
				markBlocked(u, true)
				markMember(u, true)
			}
		case eventlog.KindUsersUnblocked:
			for _, u := range w.Event.UsersUnblocked.UserIDs {
				markBlocked(u, false)
			}
		case eventlog.KindMessagePinned:
			mi := w.Event.MessagePinned.MessageIndex
			if !containsIndex(out.PinnedRemoved, mi) {
				out.PinnedAdded = append(out.PinnedAdded, mi)
			}
		case eventlog.KindMessageUnpinned:
			mi := w.Event.MessageUnpinned.MessageIndex
			if !containsIndex(out.PinnedAdded, mi) {
				out.PinnedRemoved = append(out.PinnedRemoved, mi)
			}
		}
	}
	if g.Invited.LastUpdated() > since {
		out.InvitedUsers = g.Invited.Users()
	}
	return out, QueryErrNone
}

// Events returns up to maxEvents/maxMessages visible events starting at
// `start` (nil = oldest/newest depending on direction) from the main
// chat or, if threadRoot is set, from that thread.
func (g *GroupChatCore) Events(caller ids.UserId, threadRoot *ids.MessageIndex, start *ids.EventIndex, ascending bool, maxEvents, maxMessages int, latestClientEventIndex *ids.EventIndex) ([]eventlog.EventWrapper, QueryError) {
	if qerr := g.checkReplica(latestClientEventIndex); qerr != QueryErrNone {
		return nil, qerr
	}
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	reader, ok := g.Log.EventsReader(minVisible, threadRoot)
	if !ok {
		return nil, QueryErrThreadNotFound
	}
	return reader.Scan(start, ascending, maxEvents, maxMessages), QueryErrNone
}

// EventsByIndex returns the visible events among indexes, in order.
func (g *GroupChatCore) EventsByIndex(caller ids.UserId, threadRoot *ids.MessageIndex, indexes []ids.EventIndex, latestClientEventIndex *ids.EventIndex) ([]eventlog.EventWrapper, QueryError) {
	if qerr := g.checkReplica(latestClientEventIndex); qerr != QueryErrNone {
		return nil, qerr
	}
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	reader, ok := g.Log.EventsReader(minVisible, threadRoot)
	if !ok {
		return nil, QueryErrThreadNotFound
	}
	return reader.GetByIndexes(indexes), QueryErrNone
}

// EventsWindow returns events centered on midMessageIndex.
func (g *GroupChatCore) EventsWindow(caller ids.UserId, threadRoot *ids.MessageIndex, midMessageIndex ids.MessageIndex, maxEvents, maxMessages int, latestClientEventIndex *ids.EventIndex) ([]eventlog.EventWrapper, QueryError) {
	if qerr := g.checkReplica(latestClientEventIndex); qerr != QueryErrNone {
		return nil, qerr
	}
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	reader, ok := g.Log.EventsReader(minVisible, threadRoot)
	if !ok {
		return nil, QueryErrThreadNotFound
	}
	return reader.Window(midMessageIndex, maxEvents, maxMessages), QueryErrNone
}

// MessagesByMessageIndex returns the visible message events for the
// given indexes.
func (g *GroupChatCore) MessagesByMessageIndex(caller ids.UserId, threadRoot *ids.MessageIndex, indexes []ids.MessageIndex, latestClientEventIndex *ids.EventIndex) ([]eventlog.EventWrapper, QueryError) {
	if qerr := g.checkReplica(latestClientEventIndex); qerr != QueryErrNone {
		return nil, qerr
	}
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	reader, ok := g.Log.EventsReader(minVisible, threadRoot)
	if !ok {
		return nil, QueryErrThreadNotFound
	}
	out := make([]eventlog.EventWrapper, 0, len(indexes))
	for _, mi := range indexes {
		if w, ok := reader.MessageByIndex(mi); ok {
			out = append(out, *w)
		}
	}
	return out, QueryErrNone
}

// Search runs a tokenized, AND-match search over every message visible
// to caller, ranked newest-and-most-relevant first.
func (g *GroupChatCore) Search(caller ids.UserId, query string, maxResults int, env environment.Environment) ([]eventlog.MessageMatch, QueryError) {
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	return g.Log.SearchMessages(minVisible, query, maxResults, env.Now()), QueryErrNone
}

// MaxPreviewedReplyCount bounds how many of a thread's latest replies a
// preview carries, unchanged from the original.
const MaxPreviewedReplyCount = 2

// ThreadPreview is a thread root plus its most recent few replies,
// matching build_thread_preview's shape in the original.
type ThreadPreview struct {
	RootMessageIndex ids.MessageIndex
	Root             eventlog.EventWrapper
	Latest           []eventlog.EventWrapper
	TotalReplies     int
	Participants     []ids.UserId
}

// ThreadPreviews builds a preview for each requested thread root visible
// to caller. A client that claims a thread update later than now is
// refused with QueryErrReplicaNotUpToDate.
func (g *GroupChatCore) ThreadPreviews(caller ids.UserId, roots []ids.MessageIndex, latestClientThreadUpdate *ids.TimestampMillis, now ids.TimestampMillis) ([]ThreadPreview, QueryError) {
	if latestClientThreadUpdate != nil && now < *latestClientThreadUpdate {
		return nil, QueryErrReplicaNotUpToDate
	}
	if !g.IsAccessible(caller) {
		return nil, QueryErrCallerNotInGroup
	}
	minVisible := g.minVisibleFor(caller)
	mainReader := g.Log.MainReader(minVisible)

	out := make([]ThreadPreview, 0, len(roots))
	for _, root := range roots {
		rootMsg, ok := mainReader.MessageByIndex(root)
		if !ok || rootMsg.Event.Message.ThreadSummary == nil {
			continue
		}
		threadReader, ok := g.Log.ThreadReader(root, 0)
		if !ok {
			continue
		}
		latest := threadReader.IterLatestMessages(MaxPreviewedReplyCount)
		for i, j := 0, len(latest)-1; i < j; i, j = i+1, j-1 {
			latest[i], latest[j] = latest[j], latest[i]
		}
		out = append(out, ThreadPreview{
			RootMessageIndex: root,
			Root:             *rootMsg,
			Latest:           latest,
			TotalReplies:     rootMsg.Event.Message.ThreadSummary.ReplyCount,
			Participants:     rootMsg.Event.Message.ThreadSummary.ParticipantIDs,
		})
	}
	return out, QueryErrNone
}

// DeletedMessageOutcome re-exports DeletedMessage's result for callers
// that only import the query surface.
type DeletedMessageOutcome = DeletedMessageResult

// RemoveExpiredEvents purges every event past its TTL deadline across
// the main log and every thread, returning what was removed so the
// façade's caller can fold the corresponding MessageUnpinned/notify
// bookkeeping.
func (g *GroupChatCore) RemoveExpiredEvents(env environment.Environment) eventlog.ExpiredEventsResult {
	return g.Log.RemoveExpiredEvents(env.Now())
}
