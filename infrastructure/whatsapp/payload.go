// Package whatsapp parses and verifies WhatsApp Cloud API webhook deliveries.
package whatsapp

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	domainChat "github.com/AzielCF/az-aiwa/domains/chat"
	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
)

const (
	ObjectBusinessAccount = "whatsapp_business_account"
	ModeSubscribe         = "subscribe"
	MessageTypeText       = "text"
)

// WebhookPayload is the subset of a delivery the bot reads.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string        `json:"field"`
	Value *WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// ParseInbound extracts the text message of a delivery. Only the first
// message of the first change of the first entry is considered; anything else
// (status updates, media, other objects, malformed JSON) yields ok == false.
func ParseInbound(body []byte) (domainChat.InboundMessage, bool) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domainChat.InboundMessage{}, false
	}
	if payload.Object != ObjectBusinessAccount {
		return domainChat.InboundMessage{}, false
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return domainChat.InboundMessage{}, false
	}
	value := payload.Entry[0].Changes[0].Value
	if value == nil || len(value.Messages) == 0 {
		return domainChat.InboundMessage{}, false
	}

	message := value.Messages[0]
	if message.Type != MessageTypeText {
		return domainChat.InboundMessage{}, false
	}

	var text string
	if message.Text != nil {
		text = message.Text.Body
	}
	return domainChat.InboundMessage{
		MessageID:  strings.TrimSpace(message.ID),
		SenderID:   strings.TrimSpace(message.From),
		Body:       strings.TrimSpace(text),
		ReceivedAt: parseTimestamp(message.Timestamp),
	}, true
}

func parseTimestamp(ts string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}

// VerifySubscription answers the GET handshake. It returns the challenge to
// echo, a ValidationError when a parameter is missing, or a ForbiddenError
// when mode or token do not match.
func VerifySubscription(mode, token, challenge, verifyToken string) (string, error) {
	if mode == "" || token == "" {
		return "", pkgError.ValidationError("missing hub.mode or hub.verify_token")
	}
	if mode != ModeSubscribe || verifyToken == "" || token != verifyToken {
		return "", pkgError.ForbiddenError("verification failed")
	}
	return challenge, nil
}

// AllowList filters senders by phone number. An empty list allows everyone.
type AllowList struct {
	numbers map[string]struct{}
}

func NewAllowList(contacts []string) *AllowList {
	a := &AllowList{numbers: make(map[string]struct{})}
	for _, c := range contacts {
		if d := Digits(c); d != "" {
			a.numbers[d] = struct{}{}
		}
	}
	return a
}

func (a *AllowList) Allowed(senderID string) bool {
	if a == nil || len(a.numbers) == 0 {
		return true
	}
	_, ok := a.numbers[Digits(senderID)]
	return ok
}

func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}
	return len(a.numbers)
}

// Digits keeps only the digits of a phone number.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
