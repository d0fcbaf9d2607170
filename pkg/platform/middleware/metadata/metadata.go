// Package metadata extracts client metadata (IP, User-Agent) from inbound
// requests. Actions record the summary for audit, matching the record kept by
// the rest of the registration stack.
package metadata

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"civreg/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and a parsed User-Agent
// summary from the request and adds them to the context. Apply early in the
// middleware chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		summary := SummarizeUserAgent(r.Header.Get("User-Agent"))

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, summary)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SummarizeUserAgent reduces a raw User-Agent header to "browser/version on
// os". Raw UA strings are high-cardinality and occasionally enormous; the
// summary is what gets persisted on actions.
func SummarizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s/%s on %s", name, version, os)
	}
	return fmt.Sprintf("%s/%s", name, version)
}

// ClientIPFromRequest extracts the real client IP, handling proxies and load
// balancers.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs; the first is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is "ip:port" (IPv6: "[::1]:port"); strip the port.
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}

	return "unknown"
}
