package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/xid"
)

// UserIDHeader carries the signed caller identity
const UserIDHeader = "X-User-ID"

const bearerPrefix = "Bearer "

var (
	errInvalidIdentity    = errors.New("invalid caller identity")
	errInvalidCredentials = errors.New("invalid admin credentials")
	errAdminOnly          = errors.New("admin credentials required")
)

type identityKey struct{}

// caller is the authenticated identity of a request
type caller struct {
	id    string
	admin bool
}

// signer issues and verifies caller identities.
// An identity token has the form <id>.<HMAC-SHA256(id)>
type signer struct {
	secret []byte
}

// Sign returns the identity token for the given ID
func (s signer) Sign(id string) string {
	return id + "." + s.signature(id)
}

// Verify returns the ID carried by a valid identity token
func (s signer) Verify(token string) (string, error) {
	idx := strings.LastIndexByte(token, '.')
	if idx <= 0 {
		return "", errInvalidIdentity
	}

	id, sig := token[:idx], token[idx+1:]

	if !hmac.Equal([]byte(sig), []byte(s.signature(id))) {
		return "", errInvalidIdentity
	}

	return id, nil
}

func (s signer) signature(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id)) //nolint:errcheck // hash writes never fail

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// identity authenticates the caller.
// Admins present their bearer token. Users present the identity token
// issued by the server; anonymous callers are issued a fresh one,
// echoed in the response header so the client can keep using it
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			token, ok := strings.CutPrefix(auth, bearerPrefix)
			if !ok {
				writeError(w, http.StatusForbidden, errInvalidCredentials)

				return
			}

			adminID, found := s.adminFor(strings.TrimSpace(token))
			if !found {
				writeError(w, http.StatusForbidden, errInvalidCredentials)

				return
			}

			next.ServeHTTP(w, withCaller(r, caller{id: adminID, admin: true}))

			return
		}

		token := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if token == "" {
			token = s.signer.Sign(xid.New().String())
		}

		id, err := s.signer.Verify(token)
		if err != nil || s.settlement.IsAdmin(id) {
			writeError(w, http.StatusForbidden, errInvalidIdentity)

			return
		}

		w.Header().Set(UserIDHeader, token)

		next.ServeHTTP(w, withCaller(r, caller{id: id}))
	})
}

// adminFor returns the admin authenticated by the bearer token, if any
func (s *Server) adminFor(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	for id, want := range s.config.Admins {
		if subtle.ConstantTimeCompare([]byte(token), []byte(want)) == 1 {
			return id, true
		}
	}

	return "", false
}

// requireAdmin rejects requests not authenticated with admin credentials
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := r.Context().Value(identityKey{}).(caller)
		if !c.admin {
			writeError(w, http.StatusForbidden, errAdminOnly)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func withCaller(r *http.Request, c caller) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), identityKey{}, c))
}

// callerID returns the identity resolved for the request, if any
func callerID(r *http.Request) string {
	c, _ := r.Context().Value(identityKey{}).(caller)

	return c.id
}
