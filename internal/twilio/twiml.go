package twilio

import (
	"encoding/xml"
	"fmt"
)

// RelayConfig describes the bidirectional stream the answer document tells
// the vendor platform to open.
type RelayConfig struct {
	URL             string
	WelcomeGreeting string
	TTSProvider     string
	Voice           string
	Language        string
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Relay twimlRelay `xml:"ConversationRelay"`
}

type twimlRelay struct {
	URL             string `xml:"url,attr"`
	WelcomeGreeting string `xml:"welcomeGreeting,attr,omitempty"`
	TTSProvider     string `xml:"ttsProvider,attr,omitempty"`
	Voice           string `xml:"voice,attr,omitempty"`
	Language        string `xml:"language,attr,omitempty"`
}

// AnswerTwiML renders the markup document returned from the inbound-call
// webhook. It instructs the platform to connect the call to the relay's
// WebSocket endpoint.
func AnswerTwiML(cfg RelayConfig) ([]byte, error) {
	doc := twimlResponse{
		Connect: twimlConnect{
			Relay: twimlRelay{
				URL:             cfg.URL,
				WelcomeGreeting: cfg.WelcomeGreeting,
				TTSProvider:     cfg.TTSProvider,
				Voice:           cfg.Voice,
				Language:        cfg.Language,
			},
		},
	}
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
