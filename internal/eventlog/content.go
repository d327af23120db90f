package eventlog

import (
	"regexp"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
	"github.com/openmesh-chat/groupchat-core/internal/validation"
)

// ContentKind discriminates MessageContent's payload.
type ContentKind int

const (
	ContentText ContentKind = iota
	ContentPoll
	ContentCrypto
	ContentPrize
	ContentDeleted
)

// PollContent is a simple multi-option poll; EndsAt nil means it never
// expires.
type PollContent struct {
	Options []string
	EndsAt  *ids.TimestampMillis
}

// CryptoContent is a crypto transfer attached to a message. TransferState
// mirrors the original's CryptoTransaction — only Completed transfers may
// ever be sent, since the core never makes the ledger call itself (§1:
// cross-canister ledger calls are an external collaborator).
type CryptoContent struct {
	Recipient      ids.UserId
	Amount         uint64
	Token          string
	TransferState  TransferState
}

type PrizeContent struct {
	EndsAt        ids.TimestampMillis
	TransferState TransferState
}

type TransferState int

const (
	TransferPending TransferState = iota
	TransferCompleted
	TransferFailed
)

// MessageContent is the sum type for what a message carries. Exactly one
// of the pointer fields is populated per Kind.
type MessageContent struct {
	Kind    ContentKind
	Text    string
	Poll    *PollContent
	Crypto  *CryptoContent
	Prize   *PrizeContent
}

// Text content helper.
func TextContent(text string) MessageContent { return MessageContent{Kind: ContentText, Text: text} }

// DeletedContent replaces a message's content on hard delete; it carries
// no text, so the original content is gone for good.
func DeletedContent() MessageContent { return MessageContent{Kind: ContentDeleted} }

// PlainText extracts the text to scan for mentions/search/@everyone; only
// ContentText messages have any.
func (c MessageContent) PlainText() (string, bool) {
	if c.Kind == ContentText {
		return c.Text, true
	}
	return "", false
}

// ContentValidationErrorKind enumerates why send_message's content
// validation failed, matching ContentValidationError in the original.
type ContentValidationErrorKind int

const (
	ErrEmpty ContentValidationErrorKind = iota
	ErrTextTooLong
	ErrInvalidPoll
	ErrInvalidTypeForForwarding
	ErrPrizeEndDateInThePast
	ErrUnauthorizedProposalSender
	ErrUnauthorizedContentType
	ErrTransferNotCompleted
)

type ContentValidationError struct {
	Kind ContentValidationErrorKind
	Max  int
}

// ValidateForNewMessage applies the same precondition order as
// content.validate_for_new_group_message in the original: empty check,
// length check, poll shape, forward-eligibility, crypto transfer state,
// prize expiry, proposal authorization.
func ValidateForNewMessage(
	content MessageContent,
	sender ids.UserId,
	forwarding bool,
	proposalsBotID ids.UserId,
	isProposalMessage bool,
	now ids.TimestampMillis,
) *ContentValidationError {
	switch content.Kind {
	case ContentText:
		if content.Text == "" {
			return &ContentValidationError{Kind: ErrEmpty}
		}
		if max, tooLong := validation.TextTooLong(content.Text); tooLong {
			return &ContentValidationError{Kind: ErrTextTooLong, Max: max}
		}
	case ContentPoll:
		if content.Poll == nil || len(content.Poll.Options) < 2 {
			return &ContentValidationError{Kind: ErrInvalidPoll}
		}
		if forwarding {
			return &ContentValidationError{Kind: ErrInvalidTypeForForwarding}
		}
	case ContentCrypto:
		if forwarding {
			return &ContentValidationError{Kind: ErrInvalidTypeForForwarding}
		}
		if content.Crypto == nil || content.Crypto.TransferState != TransferCompleted {
			return &ContentValidationError{Kind: ErrTransferNotCompleted}
		}
	case ContentPrize:
		if forwarding {
			return &ContentValidationError{Kind: ErrInvalidTypeForForwarding}
		}
		if content.Prize != nil && content.Prize.EndsAt <= now {
			return &ContentValidationError{Kind: ErrPrizeEndDateInThePast}
		}
	case ContentDeleted:
		return &ContentValidationError{Kind: ErrUnauthorizedContentType}
	}

	if isProposalMessage && sender != proposalsBotID {
		return &ContentValidationError{Kind: ErrUnauthorizedProposalSender}
	}

	return nil
}

// everyoneRegex is the §6 @everyone detector: word-boundary aware, cached
// once at package init per §9's design note.
var everyoneRegex = regexp.MustCompile(`(^|[\s(){}\[\]])@everyone($|[\s(){}\[\]])`)

// IsEveryoneMentioned reports whether content's text matches the
// @everyone pattern. Authorization (mention_all_members) is checked by
// the caller.
func IsEveryoneMentioned(content MessageContent) bool {
	text, ok := content.PlainText()
	if !ok {
		return false
	}
	return everyoneRegex.MatchString(text)
}
