package web

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tablebrowser/internal/core"
)

// WithRequestMetadata adds IP, User-Agent and an operation id to context
// for audit logging. The operation id reuses chi's request id so audit
// entries and access logs correlate.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithIPAddress(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.Header.Get("User-Agent"))
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		ctx = core.ContextWithOperationID(ctx, reqID)
	}
	return ctx
}

// clientIP returns the host part of RemoteAddr, already processed by
// TrustedRealIP.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
