package main

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/callwise/relay/internal/metrics"
	"github.com/callwise/relay/internal/twilio"
)

type deps struct {
	cfg       config
	validator *twilio.Validator
	wsHandler http.Handler
}

// registerRoutes wires all HTTP endpoints to the shared mux.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/relay", d.wsHandler)
	mux.HandleFunc("POST /voice", d.handleVoice)
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleVoice answers the vendor's inbound-call webhook with markup that
// connects the call to the relay's WebSocket endpoint.
func (d deps) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !d.validator.Validate(r, r.PostForm) {
		metrics.AuthFailures.Inc()
		slog.Warn("rejected unsigned voice webhook", "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	body, err := twilio.AnswerTwiML(twilio.RelayConfig{
		URL:             relayURL(d.cfg.publicBaseURL),
		WelcomeGreeting: d.cfg.welcomeGreeting,
		TTSProvider:     d.cfg.ttsProvider,
		Voice:           d.cfg.voice,
		Language:        d.cfg.language,
	})
	if err != nil {
		slog.Error("render answer twiml", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("call answered", "call_sid", r.PostForm.Get("CallSid"), "from", r.PostForm.Get("From"))
	w.Header().Set("Content-Type", "text/xml")
	w.Write(body)
}

// relayURL derives the WebSocket upgrade target from the externally
// reachable base URL. This must match exactly what the signature validator
// reconstructs on the upgrade request.
func relayURL(base string) string {
	u := strings.TrimSuffix(base, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/relay"
}
