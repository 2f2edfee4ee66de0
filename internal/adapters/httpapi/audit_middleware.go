package httpapi

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
)

var auditSkipPaths = map[string]struct{}{
	"/healthz":      {},
	"/metrics":      {},
	"/openapi.json": {},
}

// captureBuffer keeps at most limit bytes of a stream. Once the limit is
// passed the payload is certainly over the character budget, so the rest is
// only counted.
type captureBuffer struct {
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
			c.overflow = true
		} else {
			c.buf.Write(p)
		}
	} else if len(p) > 0 {
		c.overflow = true
	}
	return len(p), nil
}

// responseCapture observes what the handler sends without altering it.
type responseCapture struct {
	status int
	header http.Header
	body   captureBuffer
}

func (c *responseCapture) hooks() httpsnoop.Hooks {
	return httpsnoop.Hooks{
		WriteHeader: func(next httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return func(code int) {
				if c.status == 0 {
					c.status = code
				}
				next(code)
			}
		},
		Write: func(next httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return func(b []byte) (int, error) {
				if c.status == 0 {
					c.status = http.StatusOK
				}
				n, err := next(b)
				_, _ = c.body.Write(b[:n])
				return n, err
			}
		},
		ReadFrom: func(next httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return func(src io.Reader) (int64, error) {
				if c.status == 0 {
					c.status = http.StatusOK
				}
				return next(io.TeeReader(src, &c.body))
			}
		},
	}
}

// captureAudit snapshots every request/response exchange and hands it to the
// audit sink after the handler returns. Capture never changes what the client
// sees, and a missing or failing sink is ignored.
func (h *Handler) captureAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.auditSink == nil {
			next.ServeHTTP(w, r)
			return
		}
		if _, skip := auditSkipPaths[r.URL.Path]; skip {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		limit := captureLimit(h.masker)
		requestBody := captureRequestBody(r, limit)

		actor := &auditActor{}
		r = r.WithContext(context.WithValue(r.Context(), auditActorCtxKey, actor))
		capture := &responseCapture{header: w.Header(), body: captureBuffer{limit: limit}}

		defer func() {
			if p := recover(); p != nil {
				capture.status = http.StatusInternalServerError
				h.enqueueAudit(r, start, requestBody, capture, actor, "panic: internal server error")
				panic(p)
			}
		}()

		next.ServeHTTP(httpsnoop.Wrap(w, capture.hooks()), r)

		h.enqueueAudit(r, start, requestBody, capture, actor, "")
	})
}

func (h *Handler) enqueueAudit(r *http.Request, start time.Time, requestBody []byte, capture *responseCapture, actor *auditActor, detail string) {
	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}

	route := routePath(r)
	eventName, eventID := snapshot.EventMetadata(route, r.Method)
	responsePayload := h.masker.BuildPayload(capture.body.buf.Bytes(), capture.header.Get("Content-Type"))
	if capture.body.overflow {
		responsePayload = h.masker.TruncationMarker()
	}

	entry := domain.AuditLogEntry{
		EventID:         eventID,
		EventName:       eventName,
		ModuleName:      snapshot.ModuleFromPath(route),
		Method:          r.Method,
		RoutePath:       route,
		QueryParams:     h.masker.MaskQuery(r.URL.Query()),
		RequestPayload:  h.masker.BuildPayload(requestBody, r.Header.Get("Content-Type")),
		ResponsePayload: responsePayload,
		StatusCode:      status,
		OccurredAt:      start.UTC(),
		ClientIP:        clientIP(r),
		UserAgent:       r.UserAgent(),
		LatencyMS:       float64(time.Since(start).Microseconds()) / 1000,
	}
	if actor.known {
		entry.UserID = actor.principal.Subject
		entry.UserEmail = actor.principal.Email
	}
	if status >= http.StatusBadRequest {
		entry.ErrorDetail = errorDetail(responsePayload, status, detail)
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		entry.Extra = map[string]any{"request_id": reqID}
	}

	job := usecase.AuditJob{Entry: entry}
	if h.resolveSessions {
		job.SessionToken = strings.TrimSpace(r.Header.Get(sessionTokenHeader))
	}
	h.auditSink.Enqueue(job)
}

// captureLimit is the byte count beyond which a payload must exceed the
// character budget, since no character takes more than four bytes.
func captureLimit(m *snapshot.Masker) int {
	return 4*m.MaxChars() + 1
}

// captureRequestBody reads up to limit bytes and puts them back in front of
// the unread remainder so the handler sees the original body.
func captureRequestBody(r *http.Request, limit int) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	head, _ := io.ReadAll(io.LimitReader(r.Body, int64(limit)))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	return head
}

func routePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pat := rctx.RoutePattern(); pat != "" {
			return pat
		}
	}
	return r.URL.Path
}

// clientIP relies on middleware.RealIP having already rewritten RemoteAddr
// from X-Forwarded-For or X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func errorDetail(payload any, status int, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if m, ok := payload.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}
