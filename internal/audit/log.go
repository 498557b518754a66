// Package audit records security-relevant actions as structured log entries.
package audit

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"invizible.art/internal/auth"
	"invizible.art/internal/obs"
)

const loggerName = "audit"

// LogEvent writes an audit entry enriched with the request id and principal
// carried by the request context. Bearer tokens are never written.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	zf := []zap.Field{zap.String("type", "audit"), zap.String("event", event)}
	rc := auth.FromContext(ctx)
	if rc.RequestID != "" {
		zf = append(zf, zap.String("request_id", rc.RequestID))
	}
	if rc.Authenticated() {
		zf = append(zf, zap.Int64("principal_id", rc.Principal.ID))
	}
	if rc.UserAgent != "" {
		zf = append(zf, zap.String("user_agent", rc.UserAgent))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.EqualFold(k, "token") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	extra := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		extra = append(extra, zap.Any(k, fields[k]))
	}
	zf = append(zf, zap.Dict("fields", extra...))

	obs.Logger().Named(loggerName).Info("audit", zf...)
	return nil
}
