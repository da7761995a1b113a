package issuercontext

import (
	"context"
	"strings"
)

// IssuerContextKey is the request context key for the authenticated issuer ID.
type IssuerContextKey struct{}

type clientInfoKey struct{}

// ClientInfo describes the caller of the current request for audit entries.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// WithIssuerID stores the issuer ID in the context.
func WithIssuerID(ctx context.Context, issuerID string) context.Context {
	return context.WithValue(ctx, IssuerContextKey{}, strings.TrimSpace(issuerID))
}

// IssuerIDFromContext returns the issuer ID from context, if set.
func IssuerIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(IssuerContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if ctx == nil {
		return ClientInfo{}
	}
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
