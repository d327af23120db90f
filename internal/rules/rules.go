// Package rules implements the group's access rules text: a versioned
// document members must accept before they may act, grounded on
// AccessRulesInternal in the original group_chat_core.
package rules

import (
	"strings"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/validation"
)

// AccessRules is the group's rules text plus whether members must
// accept it. Version only advances when the text itself changes —
// toggling Enabled alone does not bump it.
type AccessRules struct {
	Text    ids.Versioned[string]
	Enabled bool
}

// New creates a fresh, version-1 rules document.
func New(text string, enabled bool) AccessRules {
	return AccessRules{Text: ids.Versioned[string]{Value: text, Version: 1}, Enabled: enabled}
}

// TextIfEnabled returns the rules text only when rules are enabled,
// matching text_if_enabled in the original — callers building a group
// summary never need to branch on Enabled themselves.
func (r AccessRules) TextIfEnabled() *string {
	if !r.Enabled {
		return nil
	}
	return &r.Text.Value
}

// UpdateError enumerates why an update to the rules was rejected.
type UpdateError struct {
	Kind UpdateErrorKind
	Min  int
	Max  int
}

type UpdateErrorKind int

const (
	ErrTooShort UpdateErrorKind = iota
	ErrTooLong
)

// Update validates and applies newText/newEnabled, bumping Version only
// when newText differs (after trimming) from the current text — the
// same "version tracks content, not the enabled flag" rule the original
// enforces so members aren't asked to re-accept rules whose wording
// never changed.
func (r *AccessRules) Update(newText string, newEnabled bool) *UpdateError {
	if verr := validation.ValidateRules(newEnabled, newText); verr != nil {
		kind := ErrTooShort
		if verr.Kind == validation.RulesTooLong {
			kind = ErrTooLong
		}
		return &UpdateError{Kind: kind, Min: verr.Min, Max: verr.Max}
	}
	trimmed := strings.TrimSpace(newText)
	if trimmed != strings.TrimSpace(r.Text.Value) {
		r.Text.Value = newText
		r.Text.Version++
	}
	r.Enabled = newEnabled
	return nil
}
