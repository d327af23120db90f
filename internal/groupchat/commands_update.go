package groupchat

import (
	"strings"

	"github.com/openmesh-chat/groupchat-core/internal/environment"
	"github.com/openmesh-chat/groupchat-core/internal/eventlog"
	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/permissions"
	"github.com/openmesh-chat/groupchat-core/internal/validation"
)

// UpdateArgs carries only the fields the caller wants to change; nil
// means "leave as is", mirroring update_group_v2's optional-field
// argument in the original.
type UpdateArgs struct {
	Name            *string
	Description     *string
	AvatarID        **string
	RulesText       *string
	RulesEnabled    *bool
	Permissions     *permissions.OptionalGroupPermissions
	EventsTTLMillis **int64
	Gate            **string
	IsPublic        *bool
}

type UpdateResult int

const (
	UpdateOK UpdateResult = iota
	UpdateCallerNotInGroup
	UpdateNotAuthorized
	UpdateNameTaken
	UpdateInvalidName
	UpdateInvalidDescription
	UpdateInvalidRules
	UpdateInvalidAvatar
	UpdateCannotMakePrivatePublic
	UpdateFrozen
)

// CanUpdate performs every validation and authorization check update
// would, without mutating anything — a dry run matching can_update in
// the original, used by clients to surface errors before committing.
func (g *GroupChatCore) CanUpdate(caller ids.UserId, args UpdateArgs) UpdateResult {
	if g.Frozen {
		return UpdateFrozen
	}
	member, merr := g.requireActiveMember(caller)
	if merr != memberErrNone {
		return UpdateCallerNotInGroup
	}
	if !member.Role.CanUpdateGroup(g.Permissions) {
		return UpdateNotAuthorized
	}
	if args.IsPublic != nil && *args.IsPublic && !g.IsPublic && !member.Role.CanChangeGroupVisibility() {
		return UpdateNotAuthorized
	}
	if args.IsPublic != nil && !*args.IsPublic && g.IsPublic {
		// Public-to-private transitions are allowed freely; only the
		// private-to-public direction is owner-gated above.
	}
	if args.Permissions != nil && !member.Role.CanChangePermissions() {
		return UpdateNotAuthorized
	}

	isPublic := g.IsPublic
	if args.IsPublic != nil {
		isPublic = *args.IsPublic
	}
	if args.Name != nil {
		if nerr := validation.ValidateGroupName(*args.Name, isPublic, g.Subtype); nerr != nil {
			return UpdateInvalidName
		}
	}
	if args.Description != nil {
		if derr := validation.ValidateDescription(*args.Description); derr != nil {
			return UpdateInvalidDescription
		}
	}
	if args.RulesText != nil || args.RulesEnabled != nil {
		text := g.Rules.Text.Value
		if args.RulesText != nil {
			text = *args.RulesText
		}
		enabled := g.Rules.Enabled
		if args.RulesEnabled != nil {
			enabled = *args.RulesEnabled
		}
		if rerr := validation.ValidateRules(enabled, text); rerr != nil {
			return UpdateInvalidRules
		}
	}
	if args.AvatarID != nil && *args.AvatarID != nil {
		// AvatarID in this façade carries an opaque reference (a hash or
		// blob-store key), not raw bytes, so no size check is applied
		// here; validation.ValidateAvatar checks byte lengths but nothing
		// in this repository calls it.
		_ = validation.MaxAvatarBytes
	}
	return UpdateOK
}

// Update runs CanUpdate then, on success, applies every requested
// change and emits one event per field that actually changed, matching
// do_update's field-by-field diff-and-emit loop in the original. Rules
// text changes bump the rules version and reset every member's
// RulesAccepted implicitly (a stale version no longer satisfies the
// `>=` check in SendMessage).
func (g *GroupChatCore) Update(env environment.Environment, caller ids.UserId, args UpdateArgs) UpdateResult {
	if res := g.CanUpdate(caller, args); res != UpdateOK {
		return res
	}
	now := env.Now()
	sameStr := func(a, b *string) bool { return a == b || (a != nil && b != nil && *a == *b) }
	sameInt := func(a, b *int64) bool { return a == b || (a != nil && b != nil && *a == *b) }

	if args.Name != nil && *args.Name != g.Name {
		prev := g.Name
		g.Name = *args.Name
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindGroupNameChanged, GroupNameChanged: &eventlog.GroupNameChangedData{
			NewName: g.Name, PreviousName: prev, ChangedBy: caller,
		}}, now)
	}
	if args.Description != nil && *args.Description != g.Description {
		prev := g.Description
		g.Description = *args.Description
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindGroupDescriptionChanged, GroupDescriptionChanged: &eventlog.GroupDescriptionChangedData{
			NewDescription: g.Description, PreviousDescription: prev, ChangedBy: caller,
		}}, now)
	}
	if args.AvatarID != nil && !sameStr(*args.AvatarID, g.AvatarID) {
		prev := g.AvatarID
		g.AvatarID = *args.AvatarID
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindAvatarChanged, AvatarChanged: &eventlog.AvatarChangedData{
			NewAvatarID: g.AvatarID, PreviousAvatarID: prev, ChangedBy: caller,
		}}, now)
	}
	if (args.RulesText != nil && strings.TrimSpace(*args.RulesText) != strings.TrimSpace(g.Rules.Text.Value)) ||
		(args.RulesEnabled != nil && *args.RulesEnabled != g.Rules.Enabled) {
		newText := g.Rules.Text.Value
		if args.RulesText != nil {
			newText = *args.RulesText
		}
		newEnabled := g.Rules.Enabled
		if args.RulesEnabled != nil {
			newEnabled = *args.RulesEnabled
		}
		prevEnabled := g.Rules.Enabled
		g.Rules.Update(newText, newEnabled)
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindGroupRulesChanged, GroupRulesChanged: &eventlog.GroupRulesChangedData{
			Enabled: newEnabled, PreviouslyEnabled: prevEnabled, ChangedBy: caller,
		}}, now)
		if member, ok := g.Members.Get(caller); ok {
			v := g.Rules.Text.Version
			member.RulesAccepted = &v
			member.RulesAcceptedAt = now
		}
	}
	if args.Permissions != nil && permissions.Merge(*args.Permissions, g.Permissions) != g.Permissions {
		g.Permissions = permissions.Merge(*args.Permissions, g.Permissions)
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindPermissionsChanged, PermissionsChanged: &eventlog.PermissionsChangedData{ChangedBy: caller}}, now)
	}
	if args.EventsTTLMillis != nil && !sameInt(*args.EventsTTLMillis, g.EventsTTLMillis) {
		g.EventsTTLMillis = *args.EventsTTLMillis
		g.Log.SetEventsTTL(g.EventsTTLMillis)
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindEventsTTLUpdated, EventsTTLUpdated: &eventlog.EventsTTLUpdatedData{
			NewTTLMillis: g.EventsTTLMillis, ChangedBy: caller,
		}}, now)
	}
	if args.Gate != nil && !sameStr(*args.Gate, g.Gate) {
		g.Gate = *args.Gate
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindGroupGateUpdated, GroupGateUpdated: &eventlog.GroupGateUpdatedData{
			NewGate: g.Gate, UpdatedBy: caller,
		}}, now)
	}
	if args.IsPublic != nil && *args.IsPublic != g.IsPublic {
		g.IsPublic = *args.IsPublic
		g.Log.PushMainEvent(eventlog.Event{Kind: eventlog.KindGroupVisibilityChanged, GroupVisibilityChanged: &eventlog.GroupVisibilityChangedData{
			NowPublic: g.IsPublic, ChangedBy: caller,
		}}, now)
	}
	return UpdateOK
}
