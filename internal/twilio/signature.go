// Package twilio implements the vendor-facing edge of the relay: request
// signature validation and the TwiML answer document.
package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader carries the vendor's HMAC over the request URL and params.
const SignatureHeader = "X-Twilio-Signature"

// Validator checks that an inbound request genuinely originates from the
// telephony vendor. The zero value (no auth token) fails closed.
type Validator struct {
	authToken string
}

// NewValidator creates a validator with the shared account auth token.
func NewValidator(authToken string) *Validator {
	return &Validator{authToken: authToken}
}

// Validate reports whether the request carries a correct vendor signature.
// params must be the URL-encoded form body for webhook POSTs, or nil for a
// WebSocket upgrade request (which is signed over the bare URL).
func (v *Validator) Validate(r *http.Request, params url.Values) bool {
	if v.authToken == "" {
		return false
	}
	presented := r.Header.Get(SignatureHeader)
	if presented == "" {
		return false
	}
	expected := v.sign(RequestURL(r), params)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) == 1
}

// sign computes base64(HMAC-SHA1(token, url + sorted key+value pairs)),
// the vendor's canonical request signature.
func (v *Validator) sign(rawURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(rawURL)
	for _, k := range keys {
		for _, val := range params[k] {
			b.WriteString(k)
			b.WriteString(val)
		}
	}

	mac := hmac.New(sha1.New, []byte(v.authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RequestURL reconstructs the externally-visible URL the vendor signed.
// Behind a reverse proxy the Host header and TLS state describe the internal
// hop, so forwarded headers take precedence. A mismatch here is the most
// common cause of signature failures in production.
func RequestURL(r *http.Request) string {
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return scheme + "://" + host + r.URL.RequestURI()
}
