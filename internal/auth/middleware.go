package auth

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// AdminNameKey is the context key for the resolved admin name
	AdminNameKey contextKey = "admin_name"
	// ClientIPKey is the context key for the client IP address
	ClientIPKey contextKey = "client_ip"
)

// AdminAuthMiddleware guards admin endpoints behind token auth.
// Requests without a recognized token get a 401 JSON response.
type AdminAuthMiddleware struct {
	resolver           *AdminResolver
	renderUnauthorized func(w http.ResponseWriter, ip string)
}

func NewAdminAuthMiddleware(resolver *AdminResolver, renderUnauthorized func(w http.ResponseWriter, ip string)) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{
		resolver:           resolver,
		renderUnauthorized: renderUnauthorized,
	}
}

// Handler wraps an HTTP handler with admin token authentication
func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always get client IP first for the unauthorized response
		clientIP := m.resolver.GetClientIP(r)

		if !m.resolver.IsLoaded() {
			m.renderUnauthorized(w, clientIP)
			return
		}

		adminName, found := m.resolver.ResolveToken(r)
		if !found {
			m.renderUnauthorized(w, clientIP)
			return
		}

		ctx := context.WithValue(r.Context(), AdminNameKey, adminName)
		ctx = context.WithValue(ctx, ClientIPKey, clientIP)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminNameFromContext retrieves the admin name from the request context
func GetAdminNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(AdminNameKey).(string)
	return name, ok
}

// GetClientIPFromContext retrieves the client IP from the request context
func GetClientIPFromContext(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(ClientIPKey).(string)
	return ip, ok
}
