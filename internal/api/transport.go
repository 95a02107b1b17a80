package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Credentials is the session the client authenticates with.
type Credentials interface {
	// Token returns the stored access token, if any.
	Token() (*oauth2.Token, bool)
	// Clear forgets the stored token and user.
	Clear() error
}

// authTransport is the cross-cutting request/response interceptor: it
// attaches the bearer credential and a request id to every request, and
// treats a 401 on an authenticated request as session expiry.
type authTransport struct {
	base      http.RoundTripper
	creds     Credentials
	onExpired func()
	log       *logrus.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if r.Header.Get("X-Request-ID") == "" {
		r.Header.Set("X-Request-ID", uuid.NewString())
	}

	authenticated := false
	if t.creds != nil {
		if tok, ok := t.creds.Token(); ok {
			tok.SetAuthHeader(r)
			authenticated = true
		}
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(r)
	if err != nil {
		t.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": r.Header.Get("X-Request-ID"),
		}).Debugf("request failed: %v", err)
		return nil, err
	}

	t.log.WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     resp.StatusCode,
		"duration":   time.Since(start).Round(time.Millisecond),
		"request_id": r.Header.Get("X-Request-ID"),
	}).Debug("request")

	// A 401 without a credential is a failed login, not an expired session.
	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		t.expire()
	}
	return resp, nil
}

func (t *authTransport) expire() {
	if err := t.creds.Clear(); err != nil {
		t.log.Warnf("clear session: %v", err)
	}
	t.log.Warn("session expired; credential cleared")
	if t.onExpired != nil {
		t.onExpired()
	}
}
