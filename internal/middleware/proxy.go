package middleware

import (
	"net"
	"net/http"
	"strings"
)

// TrustProxy replaces r.RemoteAddr with the last X-Forwarded-For hop, which is
// the address the fronting proxy saw. Earlier hops are client supplied and are
// ignored. When trusted is false the header is left alone and RemoteAddr wins.
func TrustProxy(trusted bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !trusted {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := lastForwardedHop(r.Header.Values("X-Forwarded-For")); ip != "" {
				r2 := r.Clone(r.Context())
				r2.RemoteAddr = net.JoinHostPort(ip, "0")
				r = r2
			}
			next.ServeHTTP(w, r)
		})
	}
}

func lastForwardedHop(values []string) string {
	for i := len(values) - 1; i >= 0; i-- {
		hops := strings.Split(values[i], ",")
		for j := len(hops) - 1; j >= 0; j-- {
			hop := strings.TrimSpace(hops[j])
			if hop == "" {
				continue
			}
			if net.ParseIP(hop) == nil {
				return ""
			}
			return hop
		}
	}
	return ""
}
