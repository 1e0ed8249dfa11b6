package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"sort"
	"testing"
)

const testToken = "12345abcde"

// signFor computes the vendor-side signature the same way Twilio documents
// it: HMAC-SHA1 over the URL plus sorted key+value pairs, base64-encoded.
func signFor(token, rawURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := rawURL
	for _, k := range keys {
		for _, v := range params[k] {
			payload += k + v
		}
	}

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateWebhookForm(t *testing.T) {
	v := NewValidator(testToken)
	params := url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15559876543"},
	}

	r := httptest.NewRequest("POST", "http://example.com/voice", nil)
	r.Header.Set(SignatureHeader, signFor(testToken, "http://example.com/voice", params))

	if !v.Validate(r, params) {
		t.Fatal("correctly signed webhook rejected")
	}
}

func TestValidateUpgradeRequestNoParams(t *testing.T) {
	v := NewValidator(testToken)

	r := httptest.NewRequest("GET", "http://example.com/relay", nil)
	r.Header.Set(SignatureHeader, signFor(testToken, "http://example.com/relay", nil))

	if !v.Validate(r, nil) {
		t.Fatal("correctly signed upgrade request rejected")
	}
}

func TestValidateRejectsBadSignature(t *testing.T) {
	v := NewValidator(testToken)

	r := httptest.NewRequest("GET", "http://example.com/relay", nil)
	r.Header.Set(SignatureHeader, "bm90IGEgcmVhbCBzaWduYXR1cmU=")

	if v.Validate(r, nil) {
		t.Fatal("forged signature accepted")
	}
}

func TestValidateRejectsMissingSignature(t *testing.T) {
	v := NewValidator(testToken)
	r := httptest.NewRequest("GET", "http://example.com/relay", nil)
	if v.Validate(r, nil) {
		t.Fatal("request without signature header accepted")
	}
}

func TestValidateFailsClosedWithoutToken(t *testing.T) {
	v := NewValidator("")
	r := httptest.NewRequest("GET", "http://example.com/relay", nil)
	r.Header.Set(SignatureHeader, signFor("", "http://example.com/relay", nil))
	if v.Validate(r, nil) {
		t.Fatal("validator with no auth token must reject everything")
	}
}

func TestValidateRejectsTamperedParams(t *testing.T) {
	v := NewValidator(testToken)
	signed := url.Values{"CallSid": {"CA123"}}
	r := httptest.NewRequest("POST", "http://example.com/voice", nil)
	r.Header.Set(SignatureHeader, signFor(testToken, "http://example.com/voice", signed))

	tampered := url.Values{"CallSid": {"CA999"}}
	if v.Validate(r, tampered) {
		t.Fatal("tampered params accepted")
	}
}

func TestRequestURLHonorsForwardedHeaders(t *testing.T) {
	r := httptest.NewRequest("POST", "http://internal:8080/voice?x=1", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "relay.example.com")

	if got := RequestURL(r); got != "https://relay.example.com/voice?x=1" {
		t.Fatalf("RequestURL = %q", got)
	}
}

func TestValidateBehindProxy(t *testing.T) {
	v := NewValidator(testToken)
	params := url.Values{"CallSid": {"CA123"}}

	// The vendor signed the public URL; the request arrives on the
	// internal hop with forwarded headers.
	r := httptest.NewRequest("POST", "http://10.0.0.5:8080/voice", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	r.Header.Set("X-Forwarded-Host", "relay.example.com")
	r.Header.Set(SignatureHeader, signFor(testToken, "https://relay.example.com/voice", params))

	if !v.Validate(r, params) {
		t.Fatal("proxied request with forwarded headers rejected")
	}
}
