// Package auth decides whether an inbound webhook may trigger a sync.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
)

const (
	// HeaderJiraWebhook is set by Jira Cloud on every webhook delivery.
	HeaderJiraWebhook = "X-Atlassian-Webhook-Identifier"
	// HeaderSignature carries "sha256=<hex>" for signed external callers.
	HeaderSignature = "X-Hub-Signature"

	signaturePrefix = "sha256="
)

// Result classifies a request.
type Result int

const (
	Unauthenticated Result = iota
	TrustedJira
	SignedExternal
)

func (r Result) String() string {
	switch r {
	case TrustedJira:
		return "trusted_jira"
	case SignedExternal:
		return "signed_external"
	default:
		return "unauthenticated"
	}
}

// Decision is a Result plus a short reason for audit logs. Reasons never
// contain secrets or expected signatures.
type Decision struct {
	Result Result
	Reason string
}

// OK reports whether the request may proceed.
func (d Decision) OK() bool {
	return d.Result != Unauthenticated
}

// Authenticator validates requests against a trusted Jira domain and a
// shared HMAC secret.
type Authenticator struct {
	secret        []byte
	trustedDomain string
}

// New returns an Authenticator. An empty secret rejects every signature and
// an empty domain disables the trusted Jira path.
func New(secret, trustedDomain string) *Authenticator {
	return &Authenticator{
		secret:        []byte(secret),
		trustedDomain: strings.ToLower(strings.TrimSpace(trustedDomain)),
	}
}

// Authenticate inspects headers and the exact raw body.
func (a *Authenticator) Authenticate(h http.Header, body []byte) Decision {
	if h.Get(HeaderJiraWebhook) != "" {
		if a.corroborated(h) {
			return Decision{Result: TrustedJira, Reason: "jira webhook from trusted domain"}
		}
		// Not corroborated: fall through and require a signature.
	}

	return a.Signed(h, body)
}

// Signed accepts only a valid signature. Operator endpoints use it so the
// Jira trust path cannot reach them.
func (a *Authenticator) Signed(h http.Header, body []byte) Decision {
	sig := h.Get(HeaderSignature)
	if sig == "" {
		return Decision{Result: Unauthenticated, Reason: "missing signature"}
	}
	if len(a.secret) == 0 {
		return Decision{Result: Unauthenticated, Reason: "no webhook secret configured"}
	}
	if !a.Verify(sig, body) {
		return Decision{Result: Unauthenticated, Reason: "invalid signature"}
	}
	return Decision{Result: SignedExternal, Reason: "valid signature"}
}

// Verify compares sig with the HMAC-SHA-256 of body in constant time.
func (a *Authenticator) Verify(sig string, body []byte) bool {
	if len(a.secret) == 0 || !strings.HasPrefix(sig, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(sig, signaturePrefix))
	if err != nil {
		return false
	}
	return hmac.Equal(got, mac(a.secret, body))
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(mac([]byte(secret), body))
}

func mac(secret, body []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write(body) // nolint:errcheck
	return h.Sum(nil)
}

// corroborated reports whether the configured domain appears in the
// User-Agent, or is the host of Referer or Origin.
func (a *Authenticator) corroborated(h http.Header) bool {
	if a.trustedDomain == "" {
		return false
	}
	if strings.Contains(strings.ToLower(h.Get("User-Agent")), a.trustedDomain) {
		return true
	}
	for _, name := range []string{"Referer", "Origin"} {
		if a.hostMatches(h.Get(name)) {
			return true
		}
	}
	return false
}

func (a *Authenticator) hostMatches(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == a.trustedDomain || strings.HasSuffix(host, "."+a.trustedDomain)
}
