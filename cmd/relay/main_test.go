package main

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/callwise/relay/internal/twilio"
)

const testToken = "test-auth-token"

func testDeps() deps {
	cfg := loadConfig()
	cfg.publicBaseURL = "https://relay.example.com"
	cfg.welcomeGreeting = "Hello!"
	return deps{
		cfg:       cfg,
		validator: twilio.NewValidator(testToken),
	}
}

func signForm(rawURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := rawURL
	for _, k := range keys {
		for _, v := range form[k] {
			payload += k + v
		}
	}
	mac := hmac.New(sha1.New, []byte(testToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandleVoiceAnswersWithRelayMarkup(t *testing.T) {
	d := testDeps()

	form := url.Values{"CallSid": {"CA123"}, "From": {"+15551230000"}}
	r := httptest.NewRequest("POST", "http://relay.example.com/voice", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set(twilio.SignatureHeader, signForm("http://relay.example.com/voice", form))
	w := httptest.NewRecorder()

	d.handleVoice(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, `url="wss://relay.example.com/relay"`) {
		t.Fatalf("markup missing relay url:\n%s", body)
	}
}

func TestHandleVoiceRejectsUnsigned(t *testing.T) {
	d := testDeps()

	form := url.Values{"CallSid": {"CA123"}}
	r := httptest.NewRequest("POST", "http://relay.example.com/voice", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	d.handleVoice(w, r)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if strings.Contains(w.Body.String(), "<Response>") {
		t.Fatal("markup leaked on signature failure")
	}
}

func TestRelayURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://relay.example.com", "wss://relay.example.com/relay"},
		{"https://relay.example.com/", "wss://relay.example.com/relay"},
		{"http://localhost:8080", "ws://localhost:8080/relay"},
	}
	for _, c := range cases {
		if got := relayURL(c.in); got != c.want {
			t.Fatalf("relayURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
