package main

import (
	"os"
	"strconv"
	"time"

	"github.com/callwise/relay/internal/prompts"
)

type config struct {
	port               string
	authToken          string
	publicBaseURL      string
	openaiAPIKey       string
	openaiBaseURL      string
	generatorEngine    string
	generatorModel     string
	generatorMaxTokens int
	systemPrompt       string
	deadAirDelay       time.Duration
	historyCap         int
	heartbeatInterval  time.Duration
	maxConcurrentCalls int
	sessionTTL         time.Duration
	sweepInterval      time.Duration
	welcomeGreeting    string
	ttsProvider        string
	voice              string
	language           string
}

func loadConfig() config {
	return config{
		port:               envStr("RELAY_PORT", "8080"),
		authToken:          envStr("TWILIO_AUTH_TOKEN", ""),
		publicBaseURL:      envStr("PUBLIC_BASE_URL", ""),
		openaiAPIKey:       envStr("OPENAI_API_KEY", ""),
		openaiBaseURL:      envStr("OPENAI_BASE_URL", ""),
		generatorEngine:    envStr("GENERATOR_ENGINE", "openai"),
		generatorModel:     envStr("GENERATOR_MODEL", "gpt-4o-mini"),
		generatorMaxTokens: envInt("GENERATOR_MAX_TOKENS", 300),
		systemPrompt:       envStr("SYSTEM_PROMPT", prompts.DefaultSystem),
		deadAirDelay:       envDuration("DEAD_AIR_DELAY", 1200*time.Millisecond),
		historyCap:         envInt("HISTORY_CAP", 20),
		heartbeatInterval:  envDuration("HEARTBEAT_INTERVAL", 20*time.Second),
		maxConcurrentCalls: envInt("MAX_CONCURRENT_CALLS", 100),
		sessionTTL:         envDuration("SESSION_TTL", 15*time.Minute),
		sweepInterval:      envDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		welcomeGreeting:    envStr("WELCOME_GREETING", "Hello! How can I help you today?"),
		ttsProvider:        envStr("TTS_PROVIDER", "ElevenLabs"),
		voice:              envStr("TTS_VOICE", ""),
		language:           envStr("DEFAULT_LANGUAGE", "en-US"),
	}
}

func envStr(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return d
}
