package auth

import "context"

// RequestInfo carries client attributes of the current request. The
// transport layer stores it on the context; flows attach it to audit
// events as metadata.
type RequestInfo struct {
	IP        string
	UserAgent string
}

type requestInfoCtxKey struct{}

// WithRequestInfo returns a context carrying the client info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoCtxKey{}, info)
}

// RequestInfoFromContext extracts client info stored by WithRequestInfo.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoCtxKey{}).(RequestInfo)
	return info, ok
}
