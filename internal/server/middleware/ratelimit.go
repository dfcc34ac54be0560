package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// PublicRateLimit returns an HTTP middleware that limits requests per IP
// address, using a sliding window. It guards the unauthenticated
// certificate-validation endpoint against code enumeration.
func PublicRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}
