package rum

import "time"

// Trx type classifications derived from activity content.
const (
	TrxPost    = "post"
	TrxComment = "comment"
	TrxProfile = "profile"
	TrxUnknown = "unknown"
)

// Trx is a chain transaction as returned by the node API.
type Trx struct {
	TrxID        string   `json:"TrxId"`
	GroupID      string   `json:"GroupId"`
	Data         Activity `json:"Data"`
	TimeStamp    int64    `json:"TimeStamp"`
	SenderPubkey string   `json:"SenderPubkey"`
}

// Type classifies the trx by its activity content.
func (t *Trx) Type() string {
	if t.Data.Object == nil {
		return TrxUnknown
	}
	switch t.Data.Object.Type {
	case "Note":
		if t.Data.Object.InReplyTo != nil {
			return TrxComment
		}
		return TrxPost
	case "Profile":
		return TrxProfile
	}
	return TrxUnknown
}

// Published returns the content publication time: the object's declared
// published field when present, otherwise the trx timestamp (nanoseconds).
func (t *Trx) Published() time.Time {
	if t.Data.Object != nil && t.Data.Object.Published != "" {
		if ts, err := time.Parse(time.RFC3339, t.Data.Object.Published); err == nil {
			return ts
		}
	}
	return time.Unix(0, t.TimeStamp).UTC()
}

// ReplyTargetID returns the declared reply-target post id of a comment,
// or "" for a root post.
func (t *Trx) ReplyTargetID() string {
	if t.Data.Object == nil || t.Data.Object.InReplyTo == nil {
		return ""
	}
	return t.Data.Object.InReplyTo.ID
}
