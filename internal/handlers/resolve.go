package handlers

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Zienararya/e-fridge/internal/models"
)

const (
	defaultTitle   = "Pemberitahuan"
	defaultMessage = "Anda memiliki notifikasi baru."
)

// RequestKind tags which of the three body shapes a request resolved as.
type RequestKind int

const (
	KindUnknown RequestKind = iota
	KindDirect
	KindWebhook
	KindLookup
)

func (k RequestKind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindWebhook:
		return "webhook"
	case KindLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Target is the canonical notification tuple every request shape resolves to.
type Target struct {
	UserID  int64
	Title   string
	Message string
	Data    map[string]any
}

// resolution is the outcome of the local (no-I/O) half of normalization.
// When needsLookup is set the caller fetches the notifikasi row and calls
// fillFromRow before checking completeness.
type resolution struct {
	kind        RequestKind
	target      Target
	hasUser     bool
	skip        bool
	needsLookup bool
	lookupID    int64
	hasRecord   bool
	hasRecordID bool
	recordID    int64
}

func (r *resolution) complete() bool {
	return r.hasUser && r.target.Title != "" && r.target.Message != ""
}

// decodeRecord parses the raw record value, tolerating anything that is not
// a JSON object by treating it as no record at all.
func decodeRecord(raw json.RawMessage) *models.WebhookRecord {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var rec models.WebhookRecord
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil
	}
	return &rec
}

// classify reports the primary shape of the body. A lookup may carry direct
// fields as overrides; the direct shape wins only when fully populated.
func classify(req *models.PushRequest, rec *models.WebhookRecord) RequestKind {
	if _, ok := coerceID(req.UserID); ok && req.Title != "" && req.Body != "" {
		return KindDirect
	}
	if rec != nil {
		return KindWebhook
	}
	if _, ok := coerceID(req.NotifikasiID); ok {
		return KindLookup
	}
	if req.UserID != nil || req.Title != "" || req.Body != "" {
		return KindDirect
	}
	return KindUnknown
}

// resolveLocal applies the resolution order: direct fields first, then the
// webhook record (gated on iswarning), leaving a pending lookup for the
// caller when notifikasi_id is present. Later steps only fill gaps.
func resolveLocal(req *models.PushRequest) resolution {
	rec := decodeRecord(req.Record)
	res := resolution{
		kind: classify(req, rec),
		target: Target{
			Title:   req.Title,
			Message: req.Body,
			Data:    req.Data,
		},
	}
	if res.target.Data == nil {
		res.target.Data = map[string]any{}
	}
	if rec != nil {
		res.hasRecord = true
		if id, ok := coerceID(rec.ID); ok {
			res.recordID = id
			res.hasRecordID = true
		}
	}
	if id, ok := coerceID(req.UserID); ok {
		res.target.UserID = id
		res.hasUser = true
	}

	// Webhook record path: only consulted when no user was given directly,
	// and only rows flagged iswarning produce a push.
	if !res.hasUser && rec != nil {
		if !isWarningTrue(rec.IsWarning) {
			res.skip = true
			return res
		}
		if id, ok := coerceID(rec.UserID); ok {
			res.target.UserID = id
			res.hasUser = true
		}
		if res.target.Title == "" {
			res.target.Title = defaultTitle
		}
		if res.target.Message == "" {
			if log, ok := rec.Log.(string); ok && log != "" {
				res.target.Message = log
			} else {
				res.target.Message = defaultMessage
			}
		}
	}

	if id, ok := coerceID(req.NotifikasiID); ok {
		res.needsLookup = true
		res.lookupID = id
	}
	return res
}

// fillFromRow fills the gaps left by resolveLocal from a fetched notifikasi
// row. Already-resolved fields keep their values.
func fillFromRow(res *resolution, row *models.NotifikasiRow) {
	if !res.hasUser {
		res.target.UserID = row.UserID
		res.hasUser = true
	}
	if res.target.Title == "" {
		res.target.Title = defaultTitle
	}
	if res.target.Message == "" {
		if row.Log != "" {
			res.target.Message = row.Log
		} else {
			res.target.Message = defaultMessage
		}
	}
}

// isWarningTrue accepts exactly the boolean true and the string "true".
// Everything else, including absence, means the row change is not pushworthy.
func isWarningTrue(v any) bool {
	switch w := v.(type) {
	case bool:
		return w
	case string:
		return w == "true"
	default:
		return false
	}
}

// coerceID accepts a numeric or numeric-string id; anything else leaves the
// field unresolved.
func coerceID(v any) (int64, bool) {
	switch id := v.(type) {
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(id), true
	case int64:
		return id, true
	case int:
		return int64(id), true
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
