package middleware

import "strings"

// DefaultAllowedOrigins are the browser origins a local UI is served from.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// OriginAllowed reports whether a browser on origin may drive the API.
// Requests without an Origin header do not come from a web page and are
// allowed; "*" in allowed admits every origin.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
			return true
		}
	}
	return false
}
