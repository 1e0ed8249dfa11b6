package twilio

import (
	"strings"
	"testing"
)

func TestAnswerTwiML(t *testing.T) {
	body, err := AnswerTwiML(RelayConfig{
		URL:             "wss://relay.example.com/relay",
		WelcomeGreeting: "Hello & welcome!",
		TTSProvider:     "ElevenLabs",
		Voice:           "ZF6FPAbjXT4488VcRRnw",
		Language:        "en-US",
	})
	if err != nil {
		t.Fatalf("AnswerTwiML() error = %v", err)
	}

	out := string(body)
	if !strings.HasPrefix(out, "<?xml") {
		t.Fatalf("missing xml header: %q", out)
	}
	for _, want := range []string{
		"<Response>",
		"<Connect>",
		`url="wss://relay.example.com/relay"`,
		`welcomeGreeting="Hello &amp; welcome!"`,
		`ttsProvider="ElevenLabs"`,
		`language="en-US"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnswerTwiMLOmitsEmptyAttrs(t *testing.T) {
	body, err := AnswerTwiML(RelayConfig{URL: "wss://relay.example.com/relay"})
	if err != nil {
		t.Fatalf("AnswerTwiML() error = %v", err)
	}
	if strings.Contains(string(body), "voice=") {
		t.Fatalf("empty voice attribute rendered:\n%s", body)
	}
}
