package eventlog

import "github.com/openmesh-chat/groupchat-core/internal/ids"

// Kind discriminates Event's payload, grounded on the ChatEventInternal
// enum in the original group_chat_core (lib.rs's push_main_event callers).
type Kind int

const (
	KindGroupCreated Kind = iota
	KindMessage
	KindGroupNameChanged
	KindGroupDescriptionChanged
	KindAvatarChanged
	KindRoleChanged
	KindParticipantsAdded
	KindParticipantsRemoved
	KindParticipantJoined
	KindParticipantLeft
	KindMembersAddedToPublicChannel
	KindUsersBlocked
	KindUsersUnblocked
	KindPermissionsChanged
	KindGroupVisibilityChanged
	KindGroupRulesChanged
	KindEventsTTLUpdated
	KindGroupGateUpdated
	KindMessagePinned
	KindMessageUnpinned
	KindUsersInvited
)

type ReplyContext struct {
	EventIndex             ids.EventIndex
	ThreadRootMessageIndex *ids.MessageIndex
}

type DeletedBy struct {
	UserId    ids.UserId
	Timestamp ids.TimestampMillis
}

type Tip struct {
	UserId ids.UserId
	Token  string
	Amount uint64
}

// ThreadSummary is maintained on the root message's event whenever a
// thread reply is pushed, mirroring build_thread_preview's accounting
// fields in the original.
type ThreadSummary struct {
	ReplyCount            int
	LatestEventIndex      ids.EventIndex
	LatestEventTimestamp  ids.TimestampMillis
	ParticipantIDs        []ids.UserId // insertion-ordered, deduplicated
}

func (ts *ThreadSummary) addParticipant(u ids.UserId) {
	for _, existing := range ts.ParticipantIDs {
		if existing == u {
			return
		}
	}
	ts.ParticipantIDs = append(ts.ParticipantIDs, u)
}

type MessageEventData struct {
	MessageIndex  ids.MessageIndex
	MessageID     ids.MessageId
	Sender        ids.UserId
	Content       MessageContent
	RepliesTo     *ReplyContext
	Mentioned     []ids.UserId
	Forwarded     bool
	LastEdited    *ids.TimestampMillis
	LastUpdated   ids.TimestampMillis
	Reactions     map[string][]ids.UserId
	Tips          []Tip
	DeletedBy     *DeletedBy
	ThreadSummary *ThreadSummary
}

type GroupNameChangedData struct {
	NewName, PreviousName string
	ChangedBy             ids.UserId
}

type GroupDescriptionChangedData struct {
	NewDescription, PreviousDescription string
	ChangedBy                           ids.UserId
}

type AvatarChangedData struct {
	NewAvatarID, PreviousAvatarID *string
	ChangedBy                     ids.UserId
}

type RoleChangedData struct {
	UserIDs       []ids.UserId
	ChangedBy     ids.UserId
	OldRole       int
	NewRole       int
}

type ParticipantsAddedData struct {
	UserIDs   []ids.UserId
	AddedBy   ids.UserId
	Unblocked []ids.UserId
}

type ParticipantsRemovedData struct {
	UserIDs   []ids.UserId
	RemovedBy ids.UserId
}

type ParticipantJoinedData struct{ UserId ids.UserId }
type ParticipantLeftData struct{ UserId ids.UserId }

type MembersAddedToPublicChannelData struct{ UserIDs []ids.UserId }

type UsersBlockedData struct {
	UserIDs   []ids.UserId
	BlockedBy ids.UserId
}

type UsersUnblockedData struct {
	UserIDs     []ids.UserId
	UnblockedBy ids.UserId
}

type PermissionsChangedData struct {
	ChangedBy ids.UserId
}

type GroupVisibilityChangedData struct {
	NowPublic bool
	ChangedBy ids.UserId
}

type GroupRulesChangedData struct {
	Enabled, PreviouslyEnabled bool
	ChangedBy                  ids.UserId
}

type EventsTTLUpdatedData struct {
	NewTTLMillis *int64
	ChangedBy    ids.UserId
}

type GroupGateUpdatedData struct {
	NewGate   *string
	UpdatedBy ids.UserId
}

type MessagePinnedData struct {
	MessageIndex ids.MessageIndex
	PinnedBy     ids.UserId
}

type MessageUnpinnedData struct {
	MessageIndex        ids.MessageIndex
	UnpinnedBy          ids.UserId
	DueToMessageDeleted bool
}

type UsersInvitedData struct {
	UserIDs   []ids.UserId
	InvitedBy ids.UserId
}

type GroupCreatedData struct {
	Name, Description string
	CreatedBy         ids.UserId
}

// Event is the tagged union pushed to the log. Exactly one payload field
// is populated, selected by Kind.
type Event struct {
	Kind Kind

	GroupCreated               *GroupCreatedData
	Message                    *MessageEventData
	GroupNameChanged           *GroupNameChangedData
	GroupDescriptionChanged    *GroupDescriptionChangedData
	AvatarChanged              *AvatarChangedData
	RoleChanged                *RoleChangedData
	ParticipantsAdded          *ParticipantsAddedData
	ParticipantsRemoved        *ParticipantsRemovedData
	ParticipantJoined          *ParticipantJoinedData
	ParticipantLeft            *ParticipantLeftData
	MembersAddedToPublicChannel *MembersAddedToPublicChannelData
	UsersBlocked               *UsersBlockedData
	UsersUnblocked             *UsersUnblockedData
	PermissionsChanged         *PermissionsChangedData
	GroupVisibilityChanged     *GroupVisibilityChangedData
	GroupRulesChanged          *GroupRulesChangedData
	EventsTTLUpdated           *EventsTTLUpdatedData
	GroupGateUpdated           *GroupGateUpdatedData
	MessagePinned              *MessagePinnedData
	MessageUnpinned            *MessageUnpinnedData
	UsersInvited               *UsersInvitedData
}

// EventWrapper pairs an Event with the index/timestamp it was recorded
// under, mirroring EventWrapper<ChatEventInternal> in the original.
type EventWrapper struct {
	Index     ids.EventIndex
	Timestamp ids.TimestampMillis
	Event     Event
}

// MentionedUsers returns the user ids explicitly mentioned by a message
// event, or nil for any other event kind.
func (w EventWrapper) MentionedUsers() []ids.UserId {
	if w.Event.Kind == KindMessage && w.Event.Message != nil {
		return w.Event.Message.Mentioned
	}
	return nil
}
