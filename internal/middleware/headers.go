package middleware

import "net/http"

var noStoreHeaders = map[string]string{
	"Cache-Control": "no-store, no-cache, must-revalidate, max-age=0",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

var securityHeaders = map[string]string{
	"Referrer-Policy":        "no-referrer",
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

func withHeaders(h map[string]string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range h {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore keeps respondent data out of browser and proxy caches.
func NoStore(next http.Handler) http.Handler { return withHeaders(noStoreHeaders, next) }

func SecureHeaders(next http.Handler) http.Handler { return withHeaders(securityHeaders, next) }
