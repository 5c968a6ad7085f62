package ingest

import (
	"net/url"
	"strings"
)

// InferClientName derives a stable client slug from a property's domain.
// Falls back to client_<propertyID> when the domain is absent or
// unparseable.
func InferClientName(domain, propertyID string) string {
	fallback := "client_" + propertyID
	if domain == "" {
		return fallback
	}

	host := domain
	if parsed, err := url.Parse(domain); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	host = strings.ToLower(strings.TrimSuffix(host, "/"))

	host = strings.ReplaceAll(host, "www.", "")
	host = strings.ReplaceAll(host, "shop.", "")
	host = strings.ReplaceAll(host, "store.", "")
	if host == "" {
		return fallback
	}

	base := host
	if idx := strings.Index(host, "."); idx >= 0 {
		base = host[:idx]
	}
	if base == "" {
		return fallback
	}

	base = strings.ReplaceAll(base, "-", "_")
	base = strings.ReplaceAll(base, " ", "_")
	return base
}
