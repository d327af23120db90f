// Package permissions implements the group role hierarchy and the
// permissions matrix role thresholds are checked against, grounded on
// the role-gated methods (member.role.can_*) the original group_chat_core
// calls throughout send_message/pin_message/change_role/update.
package permissions

// Role is a member's position in the group hierarchy. Ordered: a higher
// numeric value outranks a lower one.
type Role int

const (
	RoleMember Role = iota
	RoleModerator
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleModerator:
		return "moderator"
	default:
		return "member"
	}
}

// IsOwner reports whether r is the owner role.
func (r Role) IsOwner() bool { return r == RoleOwner }

// atLeast reports whether r outranks or equals threshold.
func (r Role) atLeast(threshold Role) bool { return r >= threshold }

// GroupPermissions is the full permissions matrix. Every slot is a role
// threshold: a member may perform the action iff their role is at least
// the configured threshold. change_permissions, add_members and
// block_users are intentionally absent here: §6 hard-wires them to Owner
// regardless of configuration, so they are never configurable and are
// checked directly against RoleOwner by the caller.
type GroupPermissions struct {
	ChangeRoles        Role
	RemoveMembers      Role
	DeleteMessages     Role
	UpdateGroup        Role
	PinMessages        Role
	InviteUsers        Role
	CreatePolls        Role
	SendMessages       Role
	ReactToMessages    Role
	ReplyInThread      Role
	MentionAllMembers  Role
}

// DefaultGroupPermissions mirrors the original's sensible defaults: most
// actions open to Member, moderation actions reserved for Moderator+.
func DefaultGroupPermissions() GroupPermissions {
	return GroupPermissions{
		ChangeRoles:       RoleAdmin,
		RemoveMembers:     RoleModerator,
		DeleteMessages:    RoleModerator,
		UpdateGroup:       RoleAdmin,
		PinMessages:       RoleModerator,
		InviteUsers:       RoleMember,
		CreatePolls:       RoleMember,
		SendMessages:      RoleMember,
		ReactToMessages:   RoleMember,
		ReplyInThread:     RoleMember,
		MentionAllMembers: RoleAdmin,
	}
}

func (r Role) CanChangeRoles(p GroupPermissions) bool       { return r.atLeast(p.ChangeRoles) }
func (r Role) CanRemoveMembers(p GroupPermissions) bool     { return r.atLeast(p.RemoveMembers) }
func (r Role) CanDeleteMessages(p GroupPermissions) bool    { return r.atLeast(p.DeleteMessages) }
func (r Role) CanUpdateGroup(p GroupPermissions) bool       { return r.atLeast(p.UpdateGroup) }
func (r Role) CanPinMessages(p GroupPermissions) bool       { return r.atLeast(p.PinMessages) }
func (r Role) CanInviteUsers(p GroupPermissions) bool       { return r.atLeast(p.InviteUsers) }
func (r Role) CanCreatePolls(p GroupPermissions) bool       { return r.atLeast(p.CreatePolls) }
func (r Role) CanSendMessages(p GroupPermissions) bool      { return r.atLeast(p.SendMessages) }
func (r Role) CanReactToMessages(p GroupPermissions) bool   { return r.atLeast(p.ReactToMessages) }
func (r Role) CanReplyInThread(p GroupPermissions) bool     { return r.atLeast(p.ReplyInThread) }
func (r Role) CanMentionEveryone(p GroupPermissions) bool   { return r.atLeast(p.MentionAllMembers) }

// CanChangePermissions, CanAddMembers and CanBlockUsers are hard-wired to
// Owner per §6 and take no GroupPermissions argument.
func (r Role) CanChangePermissions() bool       { return r.IsOwner() }
func (r Role) CanAddMembers() bool              { return r.IsOwner() }
func (r Role) CanBlockUsers() bool              { return r.IsOwner() }
func (r Role) CanChangeGroupVisibility() bool   { return r.IsOwner() }

// CanRemoveMembersWithRole additionally enforces that a member may never
// remove someone who outranks them, regardless of the RemoveMembers
// threshold (owner targets are refused outright by Roster.RemoveMember;
// an owner has to be demoted through change_role first).
func (r Role) CanRemoveMembersWithRole(target Role, p GroupPermissions) bool {
	if target > r {
		return false
	}
	return r.CanRemoveMembers(p)
}

// OptionalGroupPermissions carries only the slots an `update` call wants
// to change; nil fields are left untouched by merge.
type OptionalGroupPermissions struct {
	ChangeRoles       *Role
	RemoveMembers     *Role
	DeleteMessages    *Role
	UpdateGroup       *Role
	PinMessages       *Role
	InviteUsers       *Role
	CreatePolls       *Role
	SendMessages      *Role
	ReactToMessages   *Role
	ReplyInThread     *Role
	MentionAllMembers *Role
}

// Merge produces new permissions from old, overriding any slot new sets,
// matching GroupChatCore::merge_permissions in the original.
func Merge(new OptionalGroupPermissions, old GroupPermissions) GroupPermissions {
	pick := func(v *Role, fallback Role) Role {
		if v != nil {
			return *v
		}
		return fallback
	}
	return GroupPermissions{
		ChangeRoles:       pick(new.ChangeRoles, old.ChangeRoles),
		RemoveMembers:     pick(new.RemoveMembers, old.RemoveMembers),
		DeleteMessages:    pick(new.DeleteMessages, old.DeleteMessages),
		UpdateGroup:       pick(new.UpdateGroup, old.UpdateGroup),
		PinMessages:       pick(new.PinMessages, old.PinMessages),
		InviteUsers:       pick(new.InviteUsers, old.InviteUsers),
		CreatePolls:       pick(new.CreatePolls, old.CreatePolls),
		SendMessages:      pick(new.SendMessages, old.SendMessages),
		ReactToMessages:   pick(new.ReactToMessages, old.ReactToMessages),
		ReplyInThread:     pick(new.ReplyInThread, old.ReplyInThread),
		MentionAllMembers: pick(new.MentionAllMembers, old.MentionAllMembers),
	}
}
