package auth

import (
	"log/slog"
	"net/http"
)

// Decoder extracts an Identity from a bearer token. It never signals a
// rejection: a token it cannot decode simply yields no identity.
type Decoder interface {
	Decode(tokenStr string) (*Identity, bool)
}

// Tag returns middleware that, when decoder is non-nil, best-effort
// decodes the bearer token and injects the resulting Identity into the
// request context for downstream logging and metrics. It never rejects a
// request: a missing header, a non-Bearer scheme, or a decode failure all
// fall through with no identity attached, and the Authorization header is
// always forwarded upstream untouched regardless of what happens here.
func Tag(decoder Decoder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if decoder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearerToken(r.Header.Get("Authorization"))
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, ok := decoder.Decode(tokenStr)
			if !ok {
				slog.Debug("jwt identity tagging skipped", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			slog.Debug("jwt identity tagged", "subject", identity.Subject, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ""
	}
	return header[len(prefix):]
}
