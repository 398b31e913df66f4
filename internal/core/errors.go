package core

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection so callers can map it to a response.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidStructure Kind = "invalid_structure"
	KindDuplicate        Kind = "duplicate"
	KindConflict         Kind = "conflict"
	KindUnsupported      Kind = "unsupported"
)

// Rejection is a typed refusal with a precise, user-presentable reason.
// Rejections are declared once as package-level values and compared with errors.Is.
type Rejection struct {
	Kind   Kind
	Reason string
}

func Reject(kind Kind, reason string) *Rejection {
	return &Rejection{Kind: kind, Reason: reason}
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Reason)
}

// KindOf returns the kind of the first rejection in err's chain.
func KindOf(err error) (Kind, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind, true
	}
	return "", false
}

// ReasonOf returns the reason of the first rejection in err's chain.
func ReasonOf(err error) string {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Reason
	}
	return ""
}

// Storage-level sentinels returned by repositories.
var (
	ErrRecordNotFound       = errors.New("record not found")
	ErrUniqueViolation      = errors.New("unique constraint violated")
	ErrPredecessorChanged   = errors.New("author's latest post changed")
	ErrDistributionDisabled = errors.New("distribution disabled")
)

// Resolution rejections.
var (
	ErrAuthorNotFound  = Reject(KindNotFound, "author not found")
	ErrReplyNotFound   = Reject(KindNotFound, "in reply to post is not found")
	ErrRepostNotFound  = Reject(KindNotFound, "repostee is not found")
	ErrChannelNotFound = Reject(KindNotFound, "channel not found")
	ErrMediaNotFound   = Reject(KindNotFound, "file not found")
	ErrMediaCount      = Reject(KindInvalidStructure, "mediaIds must contain 1 to 4 files")
	ErrPostNotFound    = Reject(KindNotFound, "post not found")
	ErrActorNotFound   = Reject(KindNotFound, "actor not found")
)

// Publication rejections, one per violated invariant.
var (
	ErrEmptyContent          = Reject(KindInvalidStructure, "text, mediaIds, repostId or poll is required")
	ErrRepostOfRepost        = Reject(KindInvalidStructure, "cannot repost to repost")
	ErrReplyToRepost         = Reject(KindInvalidStructure, "cannot reply to repost")
	ErrRepostSameAsLatest    = Reject(KindDuplicate, "cannot repost same post that already reposted in your latest post")
	ErrRepostLatest          = Reject(KindDuplicate, "cannot repost your latest post")
	ErrReplyOutsideChannel   = Reject(KindInvalidStructure, "cannot reply from inside a channel to a post outside it")
	ErrRepostOutsideChannel  = Reject(KindInvalidStructure, "cannot repost from inside a channel a post outside it")
	ErrPlainRepostInChannel  = Reject(KindInvalidStructure, "cannot make a non-quote repost inside a channel")
	ErrReplyIntoChannel      = Reject(KindInvalidStructure, "cannot reply from outside a channel to a post inside it")
	ErrRepostIntoChannel     = Reject(KindInvalidStructure, "cannot repost from outside a channel a post inside it")
	ErrPollChoiceCount       = Reject(KindInvalidStructure, "poll must have 2 to 10 choices")
	ErrPollChoiceLength      = Reject(KindInvalidStructure, "poll choices must be 1 to 49 characters")
	ErrPollChoiceNotUnique   = Reject(KindInvalidStructure, "poll choices must be unique")
	ErrDuplicatePost         = Reject(KindDuplicate, "duplicate")
	ErrConcurrentPublication = Reject(KindConflict, "latest post changed concurrently, try again")
)

// Reaction rejections.
var (
	ErrAlreadyReacted  = Reject(KindConflict, "AlreadyReacted")
	ErrNeverReacted    = Reject(KindConflict, "NeverReacted")
	ErrInvalidReaction = Reject(KindInvalidStructure, "reaction must be 1 to 64 characters")
)

// Activity rejections.
var (
	ErrUnsupportedActivity = Reject(KindUnsupported, "unsupported activity type")
	ErrMalformedActivity   = Reject(KindInvalidStructure, "malformed activity")
	ErrMissingObject       = Reject(KindInvalidStructure, "activity object is missing")
	ErrNotLocalActor       = Reject(KindNotFound, "followee is not a local actor")
	ErrNotOwner            = Reject(KindNotFound, "delete target does not belong to the sender")
	ErrHandlerPanicked     = Reject(KindInvalidStructure, "activity handler failed")
)
