package snapshot

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaskToken       = "***"
	MaxPayloadChars = 10000
	previewChars    = 256
)

// DefaultSensitiveFields is used when no explicit set is configured.
var DefaultSensitiveFields = []string{
	"password", "passwd", "token", "access_token", "refresh_token", "id_token",
	"secret", "client_secret", "api_key", "apikey", "authorization", "cookie",
	"session_token", "otp",
}

// Masker replaces values of sensitive keys. It is immutable once built and
// safe for concurrent use.
type Masker struct {
	sensitive map[string]struct{}
	maxChars  int
}

// NewMasker builds a Masker over fields (case-insensitive). An empty list
// falls back to DefaultSensitiveFields; maxChars <= 0 means MaxPayloadChars.
func NewMasker(fields []string, maxChars int) *Masker {
	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	if maxChars <= 0 {
		maxChars = MaxPayloadChars
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			set[f] = struct{}{}
		}
	}
	return &Masker{sensitive: set, maxChars: maxChars}
}

func (m *Masker) MaxChars() int {
	return m.maxChars
}

func (m *Masker) isSensitive(key string) bool {
	_, ok := m.sensitive[strings.ToLower(key)]
	return ok
}

// Mask returns a masked copy of v. Values of unknown types pass through.
func (m *Masker) Mask(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if m.isSensitive(k) {
				out[k] = MaskToken
				continue
			}
			out[k] = m.Mask(val)
		}
		return out
	case map[string][]string:
		out := make(map[string]any, len(t))
		for k, vals := range t {
			if m.isSensitive(k) {
				out[k] = MaskToken
				continue
			}
			out[k] = flatten(vals)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = m.Mask(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = m.Mask(val)
		}
		return out
	default:
		return v
	}
}

// MaskQuery renders query parameters as a masked map. Single-valued keys map
// to a string, repeated keys to a list.
func (m *Masker) MaskQuery(q url.Values) map[string]any {
	if len(q) == 0 {
		return nil
	}
	return m.Mask(map[string][]string(q)).(map[string]any)
}

// TruncationMarker is stored in place of any payload over the budget.
func (m *Masker) TruncationMarker() map[string]any {
	return map[string]any{"truncated": true, "max_chars": m.maxChars}
}

// BuildPayload parses a captured body into a masked structure. It never
// fails: oversized bodies become the truncation marker and bodies that are
// neither JSON nor a form become a short summary.
func (m *Masker) BuildPayload(raw []byte, contentType string) any {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) > m.maxChars && utf8.RuneCount(raw) > m.maxChars {
		return m.TruncationMarker()
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		if form, err := url.ParseQuery(string(raw)); err == nil {
			return m.Mask(map[string][]string(form))
		}
	}

	if v, ok := decodeJSON(raw); ok {
		return m.Mask(v)
	}
	return summarize(raw)
}

func decodeJSON(raw []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

func summarize(raw []byte) map[string]any {
	if !utf8.Valid(raw) {
		return map[string]any{"unparsed": true, "binary": true, "size": len(raw)}
	}
	preview := string(raw)
	if utf8.RuneCountInString(preview) > previewChars {
		preview = string([]rune(preview)[:previewChars])
	}
	return map[string]any{"unparsed": true, "size": len(raw), "preview": preview}
}

func flatten(vals []string) any {
	if len(vals) == 1 {
		return vals[0]
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
