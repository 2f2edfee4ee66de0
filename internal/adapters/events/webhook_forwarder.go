package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookForwarder sends persisted audit entries to a configured HTTP
// endpoint. Each request is signed with HMAC-SHA256 so the receiver can
// verify authenticity. Non-2xx responses are reported as errors; the caller
// logs them and does not retry.
type WebhookForwarder struct {
	url    string
	secret []byte
	client *http.Client
}

// NewWebhookForwarder returns a WebhookForwarder that POSTs entries to url
// and signs them with secret. A zero or negative timeout falls back to
// defaultWebhookTimeout (10 s).
func NewWebhookForwarder(url, secret string, timeout time.Duration) *WebhookForwarder {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookForwarder{
		url:    url,
		secret: []byte(secret),
		client: &http.Client{Timeout: timeout},
	}
}

// Forward marshals entry to JSON, signs the body, and POSTs it. Headers:
//
//	Content-Type:            application/json
//	X-Envadmin-Event:        <entry.EventID>
//	X-Envadmin-Audit-Id:     <entry.ID>
//	X-Hub-Signature-256:     sha256=<hex-encoded HMAC-SHA256>
func (f *WebhookForwarder) Forward(ctx context.Context, entry domain.AuditLogEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Envadmin-Event", entry.EventID)
	req.Header.Set("X-Envadmin-Audit-Id", strconv.FormatInt(entry.ID, 10))
	req.Header.Set("X-Hub-Signature-256", "sha256="+f.sign(payload))

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// sign returns the lowercase hex-encoded HMAC-SHA256 of payload.
func (f *WebhookForwarder) sign(payload []byte) string {
	mac := hmac.New(sha256.New, f.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
