package eventlog

import "github.com/openmesh-chat/groupchat-core/internal/ids"

// AddRemoveReactionResult mirrors AddRemoveReactionResult in the
// original: Success means the reaction set changed, NoChange that it was
// already in the requested state, and the rest are failures.
type AddRemoveReactionResult int

const (
	ReactionSuccess AddRemoveReactionResult = iota
	ReactionNoChange
	ReactionInvalid
	ReactionMessageNotFound
)

// ToggleReaction adds reaction for userID when add is true and removes it
// when add is false, returning NoChange if it is already present (add)
// or already absent (remove) — one entry point for both directions
// rather than two separate methods racing on the same slot.
func (l *Log) ToggleReaction(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, userID ids.UserId, reaction string, add bool) AddRemoveReactionResult {
	if reaction == "" {
		return ReactionInvalid
	}
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return ReactionMessageNotFound
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]ids.UserId)
	}
	users := msg.Reactions[reaction]
	idx := -1
	for i, u := range users {
		if u == userID {
			idx = i
			break
		}
	}
	if add {
		if idx >= 0 {
			return ReactionNoChange
		}
		msg.Reactions[reaction] = append(users, userID)
		return ReactionSuccess
	}
	if idx < 0 {
		return ReactionNoChange
	}
	msg.Reactions[reaction] = append(users[:idx], users[idx+1:]...)
	if len(msg.Reactions[reaction]) == 0 {
		delete(msg.Reactions, reaction)
	}
	return ReactionSuccess
}

// TipMessageResult mirrors TipMessageResult in the original.
type TipMessageResult int

const (
	TipSuccess TipMessageResult = iota
	TipMessageNotFound
	TipCannotTipSelf
)

// TipMessage records a tip against a message, rejecting self-tips.
func (l *Log) TipMessage(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, tipper ids.UserId, token string, amount uint64) TipMessageResult {
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return TipMessageNotFound
	}
	if msg.Sender == tipper {
		return TipCannotTipSelf
	}
	msg.Tips = append(msg.Tips, Tip{UserId: tipper, Token: token, Amount: amount})
	return TipSuccess
}

// DeleteOutcome mirrors DeleteMessageResult: a message is soft-deleted
// (DeletedBy recorded) unless it is already deleted, by anyone, or
// missing.
type DeleteOutcome int

const (
	DeleteSuccess DeleteOutcome = iota
	DeleteAlreadyDeleted
	DeleteMessageNotFound
)

// DeleteMessage soft-deletes a message by recording DeletedBy; the
// content itself is left in place so the message can later be undeleted
// (the façade allows that to the deleter or to a member allowed to
// delete others' messages), matching the soft/hard delete split in the
// original.
func (l *Log) DeleteMessage(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, deletedBy ids.UserId, now ids.TimestampMillis) DeleteOutcome {
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return DeleteMessageNotFound
	}
	if msg.DeletedBy != nil {
		return DeleteAlreadyDeleted
	}
	msg.DeletedBy = &DeletedBy{UserId: deletedBy, Timestamp: now}
	return DeleteSuccess
}

// UndeleteOutcome mirrors the original's undelete result set.
type UndeleteOutcome int

const (
	UndeleteSuccess UndeleteOutcome = iota
	UndeleteNotDeleted
	UndeleteMessageNotFound
	UndeleteHardDeleted
)

// UndeleteMessage restores a soft-deleted message's visibility.
func (l *Log) UndeleteMessage(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex) (UndeleteOutcome, *MessageEventData) {
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return UndeleteMessageNotFound, nil
	}
	if msg.Content.Kind == ContentDeleted {
		return UndeleteHardDeleted, nil
	}
	if msg.DeletedBy == nil {
		return UndeleteNotDeleted, nil
	}
	msg.DeletedBy = nil
	return UndeleteSuccess, msg
}

// HardDeleteMessage permanently replaces a message's content with
// DeletedContent, matching the original's hard_delete path; unlike
// DeleteMessage this is irreversible. Nothing in this repository calls it.
func (l *Log) HardDeleteMessage(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex, deletedBy ids.UserId, now ids.TimestampMillis) DeleteOutcome {
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return DeleteMessageNotFound
	}
	msg.Content = DeletedContent()
	msg.DeletedBy = &DeletedBy{UserId: deletedBy, Timestamp: now}
	return DeleteSuccess
}

// IsHardDeleted reports whether messageIndex's content has already been
// irreversibly replaced — deleted_message's three-way branch in the
// original (HardDeleted / NotDeleted / NotAuthorized) starts here.
func (l *Log) IsHardDeleted(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex) (hardDeleted bool, found bool) {
	msg := l.MessageEventMut(threadRoot, messageIndex)
	if msg == nil {
		return false, false
	}
	return msg.Content.Kind == ContentDeleted, true
}
