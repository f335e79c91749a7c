package chi

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// openPaths bypass authentication so probes and scrapers need no key.
var openPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// BearerAuthMiddleware returns a middleware that accepts requests carrying
// one of apiKeys as a Bearer token. With no non-empty key, authentication is
// disabled. Keys are compared by digest in constant time.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	var digests [][sha256.Size]byte
	for _, k := range apiKeys {
		if k != "" {
			digests = append(digests, sha256.Sum256([]byte(k)))
		}
	}
	known := func(token string) bool {
		d := sha256.Sum256([]byte(token))
		found := 0
		for i := range digests {
			found |= subtle.ConstantTimeCompare(d[:], digests[i][:])
		}
		return found == 1
	}

	return func(next http.Handler) http.Handler {
		if len(digests) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			switch {
			case scheme == "":
				unauthorized(w, "missing authorization header")
			case !ok || !strings.EqualFold(scheme, "Bearer"):
				unauthorized(w, "authorization header must use Bearer scheme")
			case !known(strings.TrimSpace(token)):
				unauthorized(w, "invalid api key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="blacklab"`)
	writeError(w, http.StatusUnauthorized, CodeUnauthorized, msg)
}
