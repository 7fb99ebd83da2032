package observability

import (
	"net/http"
	"strings"
)

const (
	maxRouteLength = 256
	maxActorLength = 128
)

// SanitizeMethod normalizes the HTTP method for logging and trace attributes.
func SanitizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions, http.MethodTrace:
		return method
	case "":
		return http.MethodGet
	default:
		return "OTHER"
	}
}

// SanitizeRoute trims and bounds the route pattern before it reaches log fields.
func SanitizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	return sanitizeString(route, maxRouteLength)
}

// SanitizeActorID bounds forwarded actor identifiers so untrusted header values
// cannot blow up log entries.
func SanitizeActorID(id string) string {
	return sanitizeString(strings.TrimSpace(id), maxActorLength)
}

func sanitizeString(value string, limit int) string {
	if limit <= 0 || value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= limit {
			break
		}
	}
	return b.String()
}
