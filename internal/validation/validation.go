// Package validation implements the text/field validation rules
// GroupChatCore.update and send_message consult, grounded on
// utils::text_validation / utils::document_validation in the original
// group_chat_core and generalized the way the teacher's domain package
// enforces MaxMessageLength / MaxConversationTitleLength.
package validation

import (
	"strings"
	"unicode/utf8"
)

const (
	MinGroupNameLength = 3
	MaxGroupNameLength = 40

	MaxDescriptionLength = 1024

	MinRulesLength = 3
	MaxRulesLength = 2000

	MaxAvatarBytes = 1024 * 1024 // 1MB

	MaxTextLength = 10000
)

// NameError enumerates why a proposed group name was rejected.
type NameError struct {
	Kind NameErrorKind
	Min  int
	Max  int
}

type NameErrorKind int

const (
	NameTooShort NameErrorKind = iota
	NameTooLong
	NameReserved
)

var reservedNames = map[string]bool{
	"ic":         true,
	"sns1":       true,
	"openchat":   true,
	"admin":      true,
}

// ValidateGroupName checks length bounds and the reserved-name list.
// subtype is accepted for parity with the original signature (some
// subtypes relax the reserved-name check); the core has no subtype that
// does so today, so it is currently unused beyond documenting the shape.
func ValidateGroupName(name string, isPublic bool, subtype *string) *NameError {
	length := utf8.RuneCountInString(strings.TrimSpace(name))
	if length < MinGroupNameLength {
		return &NameError{Kind: NameTooShort, Min: MinGroupNameLength}
	}
	if length > MaxGroupNameLength {
		return &NameError{Kind: NameTooLong, Max: MaxGroupNameLength}
	}
	if isPublic && reservedNames[strings.ToLower(name)] {
		return &NameError{Kind: NameReserved}
	}
	return nil
}

// DescriptionError reports a description that is too long.
type DescriptionError struct{ Max int }

func ValidateDescription(description string) *DescriptionError {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return &DescriptionError{Max: MaxDescriptionLength}
	}
	return nil
}

// RulesError enumerates why proposed rules text was rejected.
type RulesError struct {
	Kind RulesErrorKind
	Min  int
	Max  int
}

type RulesErrorKind int

const (
	RulesTooShort RulesErrorKind = iota
	RulesTooLong
)

// ValidateRules enforces a minimum length only when the rules are
// enabled (disabled rules text is never shown to members, so it may be
// empty), and a maximum length unconditionally.
func ValidateRules(enabled bool, text string) *RulesError {
	length := utf8.RuneCountInString(strings.TrimSpace(text))
	if enabled && length < MinRulesLength {
		return &RulesError{Kind: RulesTooShort, Min: MinRulesLength}
	}
	if length > MaxRulesLength {
		return &RulesError{Kind: RulesTooLong, Max: MaxRulesLength}
	}
	return nil
}

// AvatarError reports an avatar that exceeds the size ceiling.
type AvatarError struct{ Max int }

func ValidateAvatar(byteLength int) *AvatarError {
	if byteLength > MaxAvatarBytes {
		return &AvatarError{Max: MaxAvatarBytes}
	}
	return nil
}

// TextTooLong reports the max length when text exceeds MaxTextLength, or
// 0 if it is within bounds.
func TextTooLong(text string) (max int, tooLong bool) {
	if utf8.RuneCountInString(text) > MaxTextLength {
		return MaxTextLength, true
	}
	return 0, false
}
