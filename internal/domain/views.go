// Package domain holds read-side JSON view models (chat summary,
// message, member), kept separate from groupchat's internal event/log shapes
// the same way the teacher's internal/domain package kept wire-facing
// Conversation/Message structs distinct from its GORM-backed storage
// rows — here the separation is from GroupChatCore's command-oriented
// internals instead. The cmd/groupchatd handlers do not use these views;
// they build their own JSON responses.
package domain

import (
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/groupchat"
	"github.com/openmesh-chat/groupchat-core/internal/members"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
)

// MaxMessagePreviewLength bounds how much of a message's text a list
// view carries, matching the teacher's own truncate-for-preview instinct
// in NewConversation's title generation.
const MaxMessagePreviewLength = 200

// GroupSummaryView is the JSON shape returned for a chat's metadata.
type GroupSummaryView struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	IsPublic         bool    `json:"isPublic"`
	Frozen           bool    `json:"frozen"`
	MemberCount      int     `json:"memberCount"`
	LatestEventIndex uint32  `json:"latestEventIndex"`
	RulesVersion     uint32  `json:"rulesVersion"`
	Gate             *string `json:"gate,omitempty"`
}

// BuildGroupSummaryView projects a GroupChatCore into its wire summary.
func BuildGroupSummaryView(g *groupchat.GroupChatCore) GroupSummaryView {
	reader := g.Log.MainReader(0)
	latest, _ := reader.LatestEventIndex()
	return GroupSummaryView{
		Name:             g.Name,
		Description:      g.Description,
		IsPublic:         g.IsPublic,
		Frozen:           g.Frozen,
		MemberCount:      g.Members.Len(),
		LatestEventIndex: uint32(latest),
		RulesVersion:     uint32(g.Rules.Text.Version),
		Gate:             g.Gate,
	}
}

// MessageView is the JSON shape returned for a single message event;
// Preview is truncated the way truncateString used to cap a
// conversation title, just applied to message bodies instead.
type MessageView struct {
	EventIndex   uint32  `json:"eventIndex"`
	MessageIndex uint32  `json:"messageIndex"`
	Sender       string  `json:"sender"`
	Preview      string  `json:"preview"`
	Timestamp    int64   `json:"timestamp"`
	Deleted      bool    `json:"deleted"`
	ReplyCount   int     `json:"replyCount,omitempty"`
	EditedAt     *int64  `json:"editedAt,omitempty"`
}

// BuildMessageView converts an event wrapper into a MessageView; ok is
// false if w does not wrap a message event.
func BuildMessageView(w eventlog.EventWrapper) (MessageView, bool) {
	if w.Event.Kind != eventlog.KindMessage || w.Event.Message == nil {
		return MessageView{}, false
	}
	md := w.Event.Message
	text, _ := md.Content.PlainText()
	view := MessageView{
		EventIndex:   uint32(w.Index),
		MessageIndex: uint32(md.MessageIndex),
		Sender:       string(md.Sender),
		Preview:      truncatePreview(text),
		Timestamp:    int64(w.Timestamp),
		Deleted:      md.DeletedBy != nil,
	}
	if md.ThreadSummary != nil {
		view.ReplyCount = md.ThreadSummary.ReplyCount
	}
	if md.LastEdited != nil {
		e := int64(*md.LastEdited)
		view.EditedAt = &e
	}
	return view, true
}

// MemberView is the JSON shape returned for a roster entry.
type MemberView struct {
	UserID     string `json:"userId"`
	Role       string `json:"role"`
	DateAdded  int64  `json:"dateAdded"`
	Suspended  bool   `json:"suspended"`
	Muted      bool   `json:"notificationsMuted"`
}

// BuildMemberView projects a roster member into its wire shape.
func BuildMemberView(m *members.Member) MemberView {
	return MemberView{
		UserID:    string(m.UserId),
		Role:      roleName(m.Role),
		DateAdded: int64(m.DateAdded),
		Suspended: m.Suspended,
		Muted:     m.NotificationsMuted,
	}
}

func roleName(r permissions.Role) string {
	switch r {
	case permissions.RoleOwner:
		return "owner"
	case permissions.RoleAdmin:
		return "admin"
	case permissions.RoleModerator:
		return "moderator"
	default:
		return "member"
	}
}

func truncatePreview(s string) string {
	if len(s) <= MaxMessagePreviewLength {
		return s
	}
	for i := MaxMessagePreviewLength; i > 0; i-- {
		if s[i] == ' ' {
			return s[:i] + "…"
		}
	}
	return s[:MaxMessagePreviewLength] + "…"
}
