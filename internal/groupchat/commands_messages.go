package groupchat

import (
	"github.com/openmesh-chat/groupchat-core/internal/actions"
	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// SendMessageArgs mirrors send_message's parameter list in the original.
type SendMessageArgs struct {
	Caller           ids.UserId
	MessageID        ids.MessageId
	Content          eventlog.MessageContent
	RepliesTo        *eventlog.ReplyContext
	MentionedUserIds []ids.UserId
	Forwarding       bool
	ThreadRoot       *ids.MessageIndex
}

type SendMessageResult int

const (
	SendSuccess SendMessageResult = iota
	SendCallerNotInGroup
	SendCallerSuspended
	SendNotAuthorized
	SendInvalidContent
	SendThreadNotFound
	SendRulesNotAccepted
	SendFrozen
)

type SendMessageSuccess struct {
	EventIndex   ids.EventIndex
	MessageIndex ids.MessageIndex
	Timestamp    ids.TimestampMillis
	NotifyUsers  []ids.UserId
}

// SendMessage validates authorization and content, appends the message
// to the main log or a thread log, computes the notify set (mentions,
// @everyone, first-thread-reply notifying the root author, and existing
// thread participants) and enqueues a single NotifyUsers action —
// matching send_message's precondition chain and notification logic in
// the original lib.rs.
func (g *GroupChatCore) SendMessage(env environment.Environment, args SendMessageArgs) (SendMessageResult, *SendMessageSuccess, *eventlog.ContentValidationError) {
	if g.Frozen {
		return SendFrozen, nil, nil
	}
	member, merr := g.requireActiveMember(args.Caller)
	switch merr {
	case memberErrCallerNotInGroup:
		return SendCallerNotInGroup, nil, nil
	case memberErrSuspended:
		return SendCallerSuspended, nil, nil
	}
	if g.Rules.Enabled && !member.IsBot && (member.RulesAccepted == nil || *member.RulesAccepted < g.Rules.Text.Version) {
		return SendRulesNotAccepted, nil, nil
	}

	isProposal := args.Caller == ProposalsBotUserId
	if cverr := eventlog.ValidateForNewMessage(args.Content, args.Caller, args.Forwarding, ProposalsBotUserId, isProposal, env.Now()); cverr != nil {
		return SendInvalidContent, nil, cverr
	}

	if args.ThreadRoot != nil {
		if !member.Role.CanReplyInThread(g.Permissions) {
			return SendNotAuthorized, nil, nil
		}
	} else if !member.Role.CanSendMessages(g.Permissions) {
		return SendNotAuthorized, nil, nil
	}
	if args.Content.Kind == eventlog.ContentPoll && !member.Role.CanCreatePolls(g.Permissions) {
		return SendNotAuthorized, nil, nil
	}

	// mentions is the "explicitly addressed" set: @mentions, the user
	// being replied to, and — for a thread's first reply — the thread
	// root's author, matching the `mentions` HashSet built in send_message
	// before the per-member notify/mention loop runs.
	explicitMentions := append([]ids.UserId(nil), args.MentionedUserIds...)
	mentionSet := make(map[ids.UserId]bool, len(explicitMentions)+1)
	for _, u := range explicitMentions {
		mentionSet[u] = true
	}
	if args.RepliesTo != nil {
		replyRoot := args.RepliesTo.ThreadRootMessageIndex
		if replyRoot == nil {
			replyRoot = args.ThreadRoot
		}
		if r, ok := g.Log.EventsReader(0, replyRoot); ok {
			if ws := r.GetByIndexes([]ids.EventIndex{args.RepliesTo.EventIndex}); len(ws) == 1 && ws[0].Event.Message != nil {
				mentionSet[ws[0].Event.Message.Sender] = true
			}
		}
	}

	notify := make(map[ids.UserId]bool)
	// threadFollowers is nil for a top-level message, meaning every
	// member is a notification candidate; for a reply it holds the
	// thread's participants-so-far, matching notification_candidate's
	// thread_followers.map_or(true, ...) check in the original.
	var threadFollowers map[ids.UserId]bool
	if args.ThreadRoot != nil {
		if rootEvt, ok := g.Log.MainReader(0).MessageByIndex(*args.ThreadRoot); ok {
			rootMsg := rootEvt.Event.Message
			if rootMsg.ThreadSummary != nil {
				threadFollowers = make(map[ids.UserId]bool, len(rootMsg.ThreadSummary.ParticipantIDs))
				for _, u := range rootMsg.ThreadSummary.ParticipantIDs {
					threadFollowers[u] = true
				}
			} else {
				// First reply: the root author counts as mentioned too.
				mentionSet[rootMsg.Sender] = true
			}
		}
	}

	mentionEveryone := eventlog.IsEveryoneMentioned(args.Content) && !isProposal && member.Role.CanMentionEveryone(g.Permissions)
	mentionsDisabled := isProposal

	now := env.Now()
	w, ok := g.Log.PushMessage(eventlog.PushMessageArgs{
		Sender:     args.Caller,
		MessageID:  args.MessageID,
		Content:    args.Content,
		RepliesTo:  args.RepliesTo,
		Mentioned:  explicitMentions,
		Forwarded:  args.Forwarding,
		ThreadRoot: args.ThreadRoot,
		Now:        now,
	})
	if !ok {
		return SendThreadNotFound, nil, nil
	}

	// Every non-suspended member other than the sender either gets
	// mentioned (adding a Mentions entry) or is a notification candidate
	// — a top-level message's candidate is unconditionally true, a
	// thread reply's is limited to existing participants — and, unless
	// muted, gets notified. Matches the per-member loop in send_message.
	for _, mm := range g.Members.Iter() {
		if mm.Suspended || mm.UserId == args.Caller {
			continue
		}
		mentioned := !mentionsDisabled && (mentionEveryone || mentionSet[mm.UserId])
		if mentioned {
			mm.Mentions.Add(args.ThreadRoot, w.Event.Message.MessageIndex, now)
			notify[mm.UserId] = true
		}
		notificationCandidate := threadFollowers == nil || threadFollowers[mm.UserId]
		if mentioned || (notificationCandidate && !mm.NotificationsMuted) {
			notify[mm.UserId] = true
		}
	}

	if args.ThreadRoot != nil {
		member.AddThread(*args.ThreadRoot)
		for u := range mentionSet {
			if mm, ok := g.Members.Get(u); ok {
				mm.AddThread(*args.ThreadRoot)
			}
		}
	}

	notifyList := make([]ids.UserId, 0, len(notify))
	for u := range notify {
		notifyList = append(notifyList, u)
	}
	if len(notifyList) > 0 {
		g.Actions.Push(actions.Action{
			Kind: actions.KindNotifyUsers, NotifyUsers: notifyList,
			NotifyChat: g.Name, NotifyEventID: w.Index,
		})
	}

	return SendSuccess, &SendMessageSuccess{
		EventIndex: w.Index, MessageIndex: w.Event.Message.MessageIndex,
		Timestamp: now, NotifyUsers: notifyList,
	}, nil
}

type ReactionResult int

const (
	ReactionOK ReactionResult = iota
	ReactionCallerNotInGroup
	ReactionNotAuthorized
	ReactionNoChange
	ReactionInvalid
	ReactionMessageNotFound
)

func (g *GroupChatCore) toggleReaction(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, reaction string, add bool) ReactionResult {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return ReactionCallerNotInGroup
	}
	if !member.Role.CanReactToMessages(g.Permissions) {
		return ReactionNotAuthorized
	}
	switch g.Log.ToggleReaction(threadRoot, messageIndex, caller, reaction, add) {
	case eventlog.ReactionSuccess:
		return ReactionOK
	case eventlog.ReactionNoChange:
		return ReactionNoChange
	case eventlog.ReactionInvalid:
		return ReactionInvalid
	default:
		return ReactionMessageNotFound
	}
}

func (g *GroupChatCore) AddReaction(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, reaction string) ReactionResult {
	return g.toggleReaction(caller, threadRoot, messageIndex, reaction, true)
}

func (g *GroupChatCore) RemoveReaction(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, reaction string) ReactionResult {
	return g.toggleReaction(caller, threadRoot, messageIndex, reaction, false)
}

type TipMessageResult int

const (
	TipOK TipMessageResult = iota
	TipCallerNotInGroup
	TipMessageNotFound
	TipCannotTipSelf
	TipRecipientMismatch
)

// TipMessage records a tip against a message. The core never moves the
// underlying asset itself — that's a TransferCkbtc action for the
// runtime to carry out, matching §1's "ledger calls are an external
// collaborator" boundary.
func (g *GroupChatCore) TipMessage(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, token string, amount uint64, recipient ids.UserId) TipMessageResult {
	if _, merr := g.requireActiveMember(caller); merr != memberErrNone {
		return TipCallerNotInGroup
	}
	if msg := g.Log.MessageEventMut(threadRoot, messageIndex); msg != nil && msg.Sender != recipient {
		return TipRecipientMismatch
	}
	switch g.Log.TipMessage(threadRoot, messageIndex, caller, token, amount) {
	case eventlog.TipSuccess:
		g.Actions.Push(actions.Action{Kind: actions.KindTransferCkbtc, TransferTo: recipient, TransferAmount: amount})
		return TipOK
	case eventlog.TipCannotTipSelf:
		return TipCannotTipSelf
	default:
		return TipMessageNotFound
	}
}

type DeleteMessageOutcome int

const (
	DeleteOK DeleteMessageOutcome = iota
	DeleteNotAuthorized
	DeleteAlreadyDeleted
	DeleteMessageNotFound
)

// DeleteMessages soft-deletes each requested message the caller is
// authorized to delete (their own, or any if they meet DeleteMessages
// threshold). A deleted message that was pinned is atomically unpinned
// with DueToMessageDeleted set, matching delete_messages in the original.
func (g *GroupChatCore) DeleteMessages(env environment.Environment, caller ids.UserId, threadRoot *ids.MessageIndex, messageIndexes []ids.MessageIndex) map[ids.MessageIndex]DeleteMessageOutcome {
	results := make(map[ids.MessageIndex]DeleteMessageOutcome, len(messageIndexes))
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		for _, mi := range messageIndexes {
			results[mi] = DeleteNotAuthorized
		}
		return results
	}
	now := env.Now()
	for _, mi := range messageIndexes {
		msg := g.Log.MessageEventMut(threadRoot, mi)
		if msg == nil {
			results[mi] = DeleteMessageNotFound
			continue
		}
		if msg.Sender != caller && !member.Role.CanDeleteMessages(g.Permissions) {
			results[mi] = DeleteNotAuthorized
			continue
		}
		switch g.Log.DeleteMessage(threadRoot, mi, caller, now) {
		case eventlog.DeleteAlreadyDeleted:
			results[mi] = DeleteAlreadyDeleted
			continue
		}
		results[mi] = DeleteOK

		if threadRoot == nil && g.Log.UnpinIfPinned(mi, now) {
			g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindMessageUnpinned, MessageUnpinned: &eventlog.MessageUnpinnedData{
				MessageIndex: mi, UnpinnedBy: caller, DueToMessageDeleted: true,
			}}, now)
		}
	}
	return results
}

// UndeleteMessages restores visibility of previously soft-deleted
// messages the caller is authorized to touch.
func (g *GroupChatCore) UndeleteMessages(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndexes []ids.MessageIndex) map[ids.MessageIndex]DeleteMessageOutcome {
	results := make(map[ids.MessageIndex]DeleteMessageOutcome, len(messageIndexes))
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		for _, mi := range messageIndexes {
			results[mi] = DeleteNotAuthorized
		}
		return results
	}
	for _, mi := range messageIndexes {
		msg := g.Log.MessageEventMut(threadRoot, mi)
		if msg == nil {
			results[mi] = DeleteMessageNotFound
			continue
		}
		if msg.DeletedBy != nil && msg.DeletedBy.UserId != caller && !member.Role.CanDeleteMessages(g.Permissions) {
			results[mi] = DeleteNotAuthorized
			continue
		}
		outcome, _ := g.Log.UndeleteMessage(threadRoot, mi)
		if outcome == eventlog.UndeleteSuccess {
			results[mi] = DeleteOK
		} else {
			results[mi] = DeleteAlreadyDeleted
		}
	}
	return results
}

// DeletedMessageResult mirrors deleted_message's outcomes in the
// original.
type DeletedMessageResult int

const (
	DeletedMessageHardDeleted DeletedMessageResult = iota
	DeletedMessageNotDeleted
	DeletedMessageNotAuthorized
	DeletedMessageNotFound
	DeletedMessageSuccess
)

// DeletedMessage returns the content of a soft-deleted message. Only the
// original sender or a member allowed to delete others' messages may
// ask; a hard-deleted message reports HardDeleted (its content is gone)
// and a message that was never deleted reports NotDeleted.
func (g *GroupChatCore) DeletedMessage(caller ids.UserId, threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex) (DeletedMessageResult, *eventlog.MessageContent) {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return DeletedMessageNotAuthorized, nil
	}
	msg := g.Log.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return DeletedMessageNotFound, nil
	}
	if msg.Sender != caller && !member.Role.CanDeleteMessages(g.Permissions) {
		return DeletedMessageNotAuthorized, nil
	}
	if msg.Content.Kind == eventlog.ContentDeleted {
		return DeletedMessageHardDeleted, nil
	}
	if msg.DeletedBy == nil {
		return DeletedMessageNotDeleted, nil
	}
	content := msg.Content
	return DeletedMessageSuccess, &content
}

type PinMessageResult int

const (
	PinOK PinMessageResult = iota
	PinCallerNotInGroup
	PinNotAuthorized
	PinAlreadyPinned
	PinMessageNotFound
)

// PinMessage adds messageIndex to the ascending pinned set (main chat
// only — threads have no pinned messages in the original).
func (g *GroupChatCore) PinMessage(env environment.Environment, caller ids.UserId, messageIndex ids.MessageIndex) PinMessageResult {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return PinCallerNotInGroup
	}
	if !member.Role.CanPinMessages(g.Permissions) {
		return PinNotAuthorized
	}
	if _, ok := g.Log.MainReader(0).MessageByIndex(messageIndex); !ok {
		return PinMessageNotFound
	}
	now := env.Now()
	if !g.Log.PinMessage(messageIndex, now) {
		return PinAlreadyPinned
	}
	g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindMessagePinned, MessagePinned: &eventlog.MessagePinnedData{
		MessageIndex: messageIndex, PinnedBy: caller,
	}}, now)
	return PinOK
}

type UnpinMessageResult int

const (
	UnpinOK UnpinMessageResult = iota
	UnpinCallerNotInGroup
	UnpinNotAuthorized
	UnpinNotPinned
)

func (g *GroupChatCore) UnpinMessage(env environment.Environment, caller ids.UserId, messageIndex ids.MessageIndex) UnpinMessageResult {
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return UnpinCallerNotInGroup
	}
	if !member.Role.CanPinMessages(g.Permissions) {
		return UnpinNotAuthorized
	}
	now := env.Now()
	if !g.Log.UnpinMessage(messageIndex, now) {
		return UnpinNotPinned
	}
	g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindMessageUnpinned, MessageUnpinned: &eventlog.MessageUnpinnedData{
		MessageIndex: messageIndex, UnpinnedBy: caller,
	}}, now)
	return UnpinOK
}
