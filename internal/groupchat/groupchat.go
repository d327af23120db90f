// Package groupchat assembles the event log, roster, access rules and
// invitation container into GroupChatCore, the single façade every
// command and query in the source spec is expressed against. Grounded
// on GroupChatCore in the original group_chat_core's lib.rs — this
// package is the Go rendition of that one file, restructured into the
// teacher's package-per-concern layout.
package groupchat

import (
	"github.com/openmesh-chat/groupchat-core/internal/actions"
	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/invites"
	"github.com/openmesh-chat/groupchat-core/internal/members"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
	"github.com/openmesh-chat/groupchat-core/internal/rules"
	"github.com/openmesh-chat/groupchat-core/internal/validation"
)

// ProposalsBotUserId is the sentinel sender allowed to post proposal
// messages, matching the hard-coded bot principal in the original. Its
// messages never create mention entries or @everyone mentions, but the
// group's send permissions still apply to it like any other member.
const ProposalsBotUserId ids.UserId = "proposals-bot"

// GroupChatCore is the full in-memory state of one group chat.
type GroupChatCore struct {
	Name               string
	Description        string
	AvatarID           *string
	IsPublic           bool
	Gate               *string
	Subtype            *string
	Permissions        permissions.GroupPermissions
	Rules              rules.AccessRules
	EventsTTLMillis    *int64
	Frozen             bool
	CreatedBy          ids.UserId
	CreatedAt          ids.TimestampMillis

	Log     *eventlog.Log
	Members *members.Roster
	Invited *invites.Container

	Actions actions.Queue
}

// NewArgs bundles everything New needs, mirroring GroupChatCore::new's
// parameter list in the original.
type NewArgs struct {
	CreatedBy   ids.UserId
	Name        string
	Description string
	RulesText   string
	RulesEnabled bool
	IsPublic    bool
	Permissions *permissions.GroupPermissions
	Subtype     *string
}

// FieldError is returned by New when a text field fails
// validation; Field names which one.
type FieldError struct {
	Field string
	Kind  int
	Min   int
	Max   int
}

func (e *FieldError) Error() string { return "invalid " + e.Field }

// New validates the initial fields and constructs a fresh GroupChatCore
// with a single owner (the creator) and the group-created event already
// pushed to the log.
func New(env environment.Environment, args NewArgs) (*GroupChatCore, error) {
	if nerr := validation.ValidateGroupName(args.Name, args.IsPublic, args.Subtype); nerr != nil {
		return nil, &FieldError{Field: "name", Kind: int(nerr.Kind), Min: nerr.Min, Max: nerr.Max}
	}
	if derr := validation.ValidateDescription(args.Description); derr != nil {
		return nil, &FieldError{Field: "description", Max: derr.Max}
	}
	if rerr := validation.ValidateRules(args.RulesEnabled, args.RulesText); rerr != nil {
		return nil, &FieldError{Field: "rules", Kind: int(rerr.Kind), Min: rerr.Min, Max: rerr.Max}
	}

	perms := permissions.DefaultGroupPermissions()
	if args.Permissions != nil {
		perms = *args.Permissions
	}

	now := env.Now()
	g := &GroupChatCore{
		Name:            args.Name,
		Description:     args.Description,
		IsPublic:        args.IsPublic,
		Subtype:         args.Subtype,
		Permissions:     perms,
		Rules:           rules.New(args.RulesText, args.RulesEnabled),
		CreatedBy:       args.CreatedBy,
		CreatedAt:       now,
		Log:             eventlog.New(args.Name, args.Description, args.CreatedBy, now),
		Members:         members.NewRoster(),
		Invited:         invites.New(),
	}

	owner := &members.Member{
		UserId:    args.CreatedBy,
		DateAdded: now,
		Role:      permissions.RoleOwner,
	}
	g.Members.Add(owner)
	return g, nil
}

// minVisibleFor returns the event-index floor a member may see, 0 for a
// non-member of a public group (whose whole history is readable), or the
// highest possible index (i.e. nothing) for anyone else — matching
// min_visible_event_index's "strangers see nothing" default in the
// original.
func (g *GroupChatCore) minVisibleFor(user ids.UserId) ids.EventIndex {
	if m, ok := g.Members.Get(user); ok {
		return m.MinVisibleEventIndex
	}
	if g.IsPublic {
		return 0
	}
	return ids.EventIndex(^uint32(0))
}

// IsAccessible reports whether user may read the group's events at all:
// members always can; everyone else only if the group is public and
// unfrozen, matching is_accessible in the original.
func (g *GroupChatCore) IsAccessible(user ids.UserId) bool {
	if _, ok := g.Members.Get(user); ok {
		return true
	}
	return g.IsPublic && !g.Frozen
}

// requireActiveMember is the precondition nearly every command in the
// original starts with: caller must be a current, non-suspended member.
type memberError int

const (
	memberErrNone memberError = iota
	memberErrCallerNotInGroup
	memberErrSuspended
)

func (g *GroupChatCore) requireActiveMember(caller ids.UserId) (*members.Member, memberError) {
	m, ok := g.Members.Get(caller)
	if !ok {
		return nil, memberErrCallerNotInGroup
	}
	if m.Suspended {
		return nil, memberErrSuspended
	}
	return m, memberErrNone
}
