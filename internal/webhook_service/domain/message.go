package domain

import "strings"

// InboundNotification is the raw push envelope from Nylas. Data is loosely
// shaped: depending on event version the message arrives inline under
// data.object or as an id/grant reference only.
type InboundNotification struct {
	Type string           `json:"type" validate:"required"`
	Data NotificationData `json:"data"`
}

type NotificationData struct {
	Object    MessageObject `json:"object"`
	MessageID string        `json:"message_id"`
	GrantID   string        `json:"grant_id"`
}

type MessageObject struct {
	ID      string `json:"id"`
	GrantID string `json:"grant_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Snippet string `json:"snippet"`
}

// MessageRecord is the canonical message shape. Normalization happens once
// at ingress; every downstream component consumes only this type.
type MessageRecord struct {
	ID      string
	GrantID string
	Subject string
	Body    string
	Snippet string
}

// Normalize resolves the loose payload shapes into one canonical record.
// The second return value is false when the payload carries nothing
// message-like at all.
func (n *InboundNotification) Normalize() (MessageRecord, bool) {
	obj := n.Data.Object
	rec := MessageRecord{
		ID:      obj.ID,
		GrantID: obj.GrantID,
		Subject: obj.Subject,
		Body:    obj.Body,
		Snippet: obj.Snippet,
	}
	if rec.ID == "" {
		rec.ID = n.Data.MessageID
	}
	if rec.GrantID == "" {
		rec.GrantID = n.Data.GrantID
	}
	if rec.ID == "" && rec.Subject == "" && rec.Body == "" && rec.Snippet == "" {
		return MessageRecord{}, false
	}
	return rec, true
}

// IsStub reports whether the record references a message without carrying
// any content, meaning the full record must be fetched from the API.
func (r MessageRecord) IsStub() bool {
	return r.ID != "" && r.Subject == "" && r.Body == "" && r.Snippet == ""
}

// HasBody reports whether the record carries non-blank body content.
func (r MessageRecord) HasBody() bool {
	return strings.TrimSpace(r.Body) != ""
}

// CanFetch reports whether the record carries the id/grant pair required
// for a follow-up API fetch.
func (r MessageRecord) CanFetch() bool {
	return r.ID != "" && r.GrantID != ""
}
