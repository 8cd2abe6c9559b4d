// Package authmw provides HTTP middleware for bearer token authentication.
package authmw

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/linnemanlabs/go-core/xerrors"
)

type callerKey struct{}

// Credential is one accepted bearer token and the caller name it maps to.
type Credential struct {
	Caller string
	Token  string
}

// ParseCredentials parses "caller=token" entries. An entry without "=" is
// accepted as a bare token for caller "default".
func ParseCredentials(entries []string) ([]Credential, error) {
	out := make([]Credential, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		caller, token, ok := strings.Cut(e, "=")
		if !ok {
			caller, token = "default", e
		}
		if caller == "" || token == "" {
			return nil, xerrors.New("api token entries must be caller=token")
		}
		out = append(out, Credential{Caller: caller, Token: token})
	}
	return out, nil
}

// BearerTokens returns middleware that requires an Authorization header with
// a Bearer token matching one of creds. Every credential is compared in
// constant time so the match position is not observable. The matched caller
// name is attached to the request context.
func BearerTokens(creds []Credential) func(http.Handler) http.Handler {
	type key struct {
		caller string
		token  []byte
	}
	keys := make([]key, len(creds))
	for i, c := range creds {
		keys[i] = key{caller: c.Caller, token: []byte(c.Token)}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")

			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing or malformed authorization header"}`, http.StatusUnauthorized)
				return
			}

			got := []byte(auth[len("Bearer "):])

			caller := ""
			for _, k := range keys {
				if subtle.ConstantTimeCompare(got, k.token) == 1 && caller == "" {
					caller = k.caller
				}
			}
			if caller == "" {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// WithCaller attaches an authenticated caller name to ctx.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the authenticated caller name, or "" if the request did not
// pass through BearerTokens.
func Caller(ctx context.Context) string {
	s, _ := ctx.Value(callerKey{}).(string)
	return s
}
