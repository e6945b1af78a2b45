package auth

import (
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// AdminResolver resolves admin API tokens to admin names.
// Tokens live in a YAML file mapping token to display name:
//
//	"tok-a1b2c3": "ops-alice"
//	"tok-d4e5f6": "ops-bob"
//
// The file is intentionally outside env config so tokens can be rotated
// without restarting the service (see Reload).
type AdminResolver struct {
	mu        sync.RWMutex
	tokToName map[string]string
	loaded    bool
	yamlPath  string
}

// NewAdminResolver creates a resolver backed by the YAML file at path.
// A missing file is not fatal; admin endpoints stay blocked until the
// file appears and Reload succeeds.
func NewAdminResolver(path string) *AdminResolver {
	resolver := &AdminResolver{
		tokToName: make(map[string]string),
		yamlPath:  path,
	}

	if err := resolver.loadConfig(path); err != nil {
		log.Printf("WARNING: admin tokens not loaded from %s: %v", path, err)
		log.Printf("Admin endpoints will be BLOCKED until the file is present at: %s", path)
	} else {
		log.Printf("Loaded admin tokens from: %s (%d entries)", path, len(resolver.tokToName))
	}

	return resolver
}

func (r *AdminResolver) loadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var config map[string]string
	if err := yaml.Unmarshal(data, &config); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokToName = config
	r.loaded = true

	return nil
}

// Reload re-reads the token file from disk.
func (r *AdminResolver) Reload() error {
	if r.yamlPath == "" {
		return nil
	}
	return r.loadConfig(r.yamlPath)
}

// IsLoaded returns true if the token file was successfully loaded.
func (r *AdminResolver) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// ResolveToken extracts the admin token from the request and maps it to
// an admin name. Returns (name, found).
func (r *AdminResolver) ResolveToken(req *http.Request) (string, bool) {
	tok := extractToken(req)
	if tok == "" {
		return "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	name, found := r.tokToName[tok]
	return name, found
}

// GetClientIP returns the client IP address from the request.
func (r *AdminResolver) GetClientIP(req *http.Request) string {
	return extractClientIP(req)
}

// extractToken reads the token from Authorization: Bearer or the
// X-Admin-Token header.
func extractToken(req *http.Request) string {
	if h := req.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	return strings.TrimSpace(req.Header.Get("X-Admin-Token"))
}

// extractClientIP extracts the real client IP from the request.
// Handles X-Forwarded-For and X-Real-IP headers for reverse proxy scenarios.
func extractClientIP(req *http.Request) string {
	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if ip := parseFirstIP(xff); ip != "" {
			return ip
		}
	}

	if xri := req.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return ip
}

// parseFirstIP extracts the first IP from a comma-separated list
func parseFirstIP(xff string) string {
	for i := 0; i < len(xff); i++ {
		if xff[i] == ',' {
			return xff[:i]
		}
	}
	return xff
}
