package models

import (
	"encoding/json"
	"time"
)

// PushRequest is the raw inbound body. Three shapes share it: a direct call
// (user_id/title/body), a Supabase database webhook (type/table/schema/record),
// and a lookup by notifikasi_id. Fields that may arrive as either a number or
// a numeric string are left untyped and coerced during resolution.
type PushRequest struct {
	UserID       any            `json:"user_id,omitempty"`
	Title        string         `json:"title,omitempty"`
	Body         string         `json:"body,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	NotifikasiID any            `json:"notifikasi_id,omitempty"`

	Type   string `json:"type,omitempty"`
	Table  string `json:"table,omitempty"`
	Schema string `json:"schema,omitempty"`
	// Record is kept raw: webhook senders own this value and a non-object
	// here must degrade to field resolution, not a decode failure.
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// WebhookRecord is the row payload inside a database webhook event.
type WebhookRecord struct {
	ID        any `json:"id"`
	UserID    any `json:"user_id"`
	Log       any `json:"log"`
	IsWarning any `json:"iswarning"`
	Timestamp any `json:"timestamp"`
}

// NotifikasiRow is a row of the notifikasi table as returned by PostgREST.
type NotifikasiRow struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Log       string `json:"log"`
	IsWarning any    `json:"iswarning"`
	Timestamp string `json:"timestamp"`
}

// DeviceToken is one registered device row for a user.
type DeviceToken struct {
	Token string `json:"token"`
}

// DeliveryResult captures the delivery outcome per device token. Body holds
// the provider response parsed as JSON when possible, otherwise the raw text.
type DeliveryResult struct {
	Token  string `json:"token"`
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
	Body   any    `json:"body"`
}

type PushResponse struct {
	Sent    int              `json:"sent"`
	Results []DeliveryResult `json:"results"`
}

type SkippedResponse struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason"`
}

type APIError struct {
	Error string `json:"error"`
}

// DeliveryReport is the audit event published to the results queue after a
// completed fan-out.
type DeliveryReport struct {
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Sent          int       `json:"sent"`
	Failed        int       `json:"failed"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// ServiceAccount is the slice of the Google service-account JSON blob the
// authenticator needs.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// FCMMessage is the FCM HTTP v1 send payload.
type FCMMessage struct {
	Message FCMMessageBody `json:"message"`
}

type FCMMessageBody struct {
	Token        string          `json:"token"`
	Notification FCMNotification `json:"notification"`
	Data         map[string]any  `json:"data"`
}

type FCMNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
