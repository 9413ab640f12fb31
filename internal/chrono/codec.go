package chrono

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Seal payloads use two layers of JSON. The outer layer is what the ledger
// stores:
//
//	{"content": "...", "unlockTime": 1700000000, "mediaIds": "a,b",
//	 "creator": "0xabc...", "createdAt": 1699990000000}
//
// and its "content" field is itself a JSON document written by the author:
//
//	{"title": "...", "content": "...", "createdAt": "2024-01-15T10:30:00Z",
//	 "emotion": "...", "tags": ["..."]}
//
// The inner layer is optional. Payloads whose content is not JSON decode as
// plain text rather than failing.

// wirePayload is the outer layer as written to the ledger.
type wirePayload struct {
	Content    string `json:"content"`
	UnlockTime int64  `json:"unlockTime"`
	MediaIDs   string `json:"mediaIds"`
	Creator    string `json:"creator"`
	CreatedAt  int64  `json:"createdAt"` // unix milliseconds
}

// storedPayload is the outer layer as read back. Fields are loose because
// older writers stored numbers as strings and ids as arrays.
type storedPayload struct {
	Content    json.RawMessage `json:"content"`
	UnlockTime json.Number     `json:"unlockTime"`
	MediaIDs   json.RawMessage `json:"mediaIds"`
	Creator    string          `json:"creator"`
	CreatedAt  json.RawMessage `json:"createdAt"`
}

const (
	bodyTitle     = "title"
	bodyContent   = "content"
	bodyCreatedAt = "createdAt"
	bodyEmotion   = "emotion"
	bodyTags      = "tags"
)

// EncodeSeal converts a seal to the bytes stored on the ledger.
func EncodeSeal(s Seal) ([]byte, error) {
	if s.Content == "" {
		return nil, fmt.Errorf("encoding seal: content is required")
	}
	body, err := EncodeBody(s)
	if err != nil {
		return nil, err
	}
	return encodePayload(wirePayload{
		Content:    string(body),
		UnlockTime: s.UnlockTime,
		MediaIDs:   JoinMediaIDs(s.MediaIDs),
		Creator:    s.Creator,
		CreatedAt:  s.CreatedAt.UnixMilli(),
	})
}

// EncodeBody renders the inner content layer for a seal.
func EncodeBody(s Seal) ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(s.Extra)+5)
	for k, v := range s.Extra {
		fields[k] = v
	}

	set := func(key string, v any) error {
		b, err := marshalCanonical(v)
		if err != nil {
			return fmt.Errorf("encoding seal field %s: %w", key, err)
		}
		fields[key] = b
		return nil
	}

	if err := set(bodyTitle, s.Title); err != nil {
		return nil, err
	}
	if err := set(bodyContent, s.Content); err != nil {
		return nil, err
	}
	if !s.CreatedAt.IsZero() {
		if err := set(bodyCreatedAt, s.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return nil, err
		}
	}
	if s.Emotion != "" {
		if err := set(bodyEmotion, s.Emotion); err != nil {
			return nil, err
		}
	}
	if len(s.Tags) > 0 {
		if err := set(bodyTags, s.Tags); err != nil {
			return nil, err
		}
	}

	return marshalCanonical(fields)
}

func encodePayload(p wirePayload) ([]byte, error) {
	b, err := marshalCanonical(p)
	if err != nil {
		return nil, fmt.Errorf("encoding seal payload: %w", err)
	}
	return b, nil
}

// marshalCanonical marshals v without HTML escaping and without the trailing
// newline json.Encoder appends. Map keys come out sorted.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeHex renders payload bytes in the "0x"-prefixed form indexers return.
func EncodeHex(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// DecodeSeal parses a ledger payload. raw may be "0x"-prefixed hex text of
// the UTF-8 payload or the payload itself. IsUnlocked is computed against now.
func DecodeSeal(raw []byte, now time.Time) (*DecodedSeal, error) {
	text, err := payloadText(raw)
	if err != nil {
		return nil, err
	}

	if bytes.Equal(text, []byte("null")) {
		return nil, &DecodeError{Reason: "payload is null"}
	}
	var p storedPayload
	if err := json.Unmarshal(text, &p); err != nil {
		return nil, &DecodeError{Reason: "payload is not a JSON object", Err: err}
	}

	unlockTime, err := parseInt(p.UnlockTime)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid unlockTime", Err: err}
	}

	mediaIDs, err := parseMediaIDs(p.MediaIDs)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid mediaIds", Err: err}
	}

	d := &DecodedSeal{
		Seal: Seal{
			UnlockTime: unlockTime,
			MediaIDs:   mediaIDs,
			Creator:    p.Creator,
		},
	}
	if createdAt, ok := parseTimestamp(p.CreatedAt); ok {
		d.CreatedAt = createdAt
	}

	d.BodyFormat = decodeBody(p.Content, &d.Seal)
	d.IsUnlocked = IsUnlocked(d.UnlockTime, now.UnixMilli())
	return d, nil
}

func payloadText(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '0' && (trimmed[1] == 'x' || trimmed[1] == 'X') {
		decoded := make([]byte, hex.DecodedLen(len(trimmed)-2))
		if _, err := hex.Decode(decoded, trimmed[2:]); err != nil {
			return nil, &DecodeError{Reason: "invalid hex payload", Err: err}
		}
		return decoded, nil
	}
	return trimmed, nil
}

// decodeBody fills title, content, emotion, tags and extras from the inner
// layer. Anything that is not a JSON object is kept as plain text.
func decodeBody(raw json.RawMessage, s *Seal) BodyFormat {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return BodyPlain
	}

	doc := []byte(raw)
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			s.Content = string(raw)
			return BodyPlain
		}
		s.Content = text
		doc = []byte(text)
	} else if raw[0] != '{' {
		s.Content = string(raw)
		return BodyPlain
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil || fields == nil {
		if raw[0] != '"' {
			s.Content = string(raw)
		}
		return BodyPlain
	}

	s.Content = ""
	for key, value := range fields {
		var ok bool
		switch key {
		case bodyTitle:
			ok = json.Unmarshal(value, &s.Title) == nil
		case bodyContent:
			ok = json.Unmarshal(value, &s.Content) == nil
		case bodyEmotion:
			ok = json.Unmarshal(value, &s.Emotion) == nil
		case bodyTags:
			ok = json.Unmarshal(value, &s.Tags) == nil
		case bodyCreatedAt:
			var t time.Time
			if t, ok = parseTimestamp(value); ok && s.CreatedAt.IsZero() {
				s.CreatedAt = t
			}
		}
		if !ok {
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = value
		}
	}
	return BodyJSON
}

// parseInt accepts integers, including ones written in float notation such
// as 1.7e9. Fractions and values outside int64 are rejected.
func parseInt(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not an integer", n)
	}
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s is out of range", n)
	}
	return int64(f), nil
}

func parseMediaIDs(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var ids []string
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, err
		}
		return SplitMediaIDs(JoinMediaIDs(ids)), nil
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, err
	}
	return SplitMediaIDs(joined), nil
}

// parseTimestamp accepts unix milliseconds (number or numeric string) or an
// RFC 3339 string.
func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}
	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}
