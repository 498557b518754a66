package auth

import "context"

// RequestContext is built once per inbound request and carries the resolved
// identity (if any) plus request metadata to every core call.
type RequestContext struct {
	Principal *Principal
	Token     string
	UserAgent string
	RequestID string
}

// Authenticated reports whether a principal was resolved for the request.
func (rc *RequestContext) Authenticated() bool {
	return rc != nil && rc.Principal != nil
}

// PrincipalID returns the resolved principal id, or zero.
func (rc *RequestContext) PrincipalID() int64 {
	if !rc.Authenticated() {
		return 0
	}
	return rc.Principal.ID
}

type requestContextKey struct{}

// WithRequestContext attaches rc to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	if rc == nil {
		return ctx
	}
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// FromContext extracts the request context. It never returns nil.
func FromContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{}
	}
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	if !ok || rc == nil {
		return &RequestContext{}
	}
	return rc
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	rc := FromContext(ctx)
	if !rc.Authenticated() {
		return Principal{}, false
	}
	return *rc.Principal, true
}
