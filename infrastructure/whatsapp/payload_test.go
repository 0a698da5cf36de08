package whatsapp

import (
	"errors"
	"testing"
	"time"

	pkgError "github.com/AzielCF/az-aiwa/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textDelivery = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [{
          "id": "wamid.ABC",
          "from": " 6281234567890 ",
          "timestamp": "1760000000",
          "type": "text",
          "text": {"body": "  Halo Aiwa  "}
        }]
      }
    }]
  }]
}`

func TestParseInbound_Text(t *testing.T) {
	msg, ok := ParseInbound([]byte(textDelivery))
	require.True(t, ok)
	assert.Equal(t, "wamid.ABC", msg.MessageID)
	assert.Equal(t, "6281234567890", msg.SenderID)
	assert.Equal(t, "Halo Aiwa", msg.Body)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), msg.ReceivedAt)
}

func TestParseInbound_Ignored(t *testing.T) {
	cases := map[string]string{
		"malformed":      `{"object":`,
		"other object":   `{"object":"page","entry":[]}`,
		"no entry":       `{"object":"whatsapp_business_account","entry":[]}`,
		"no changes":     `{"object":"whatsapp_business_account","entry":[{"changes":[]}]}`,
		"no value":       `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages"}]}]}`,
		"status update":  `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`,
		"image message":  `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"id":"m","from":"1","type":"image"}]}}]}]}`,
		"not an object":  `[]`,
		"empty document": ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ParseInbound([]byte(body))
			assert.False(t, ok)
		})
	}
}

func TestVerifySubscription(t *testing.T) {
	challenge, err := VerifySubscription("subscribe", "tok", "12345", "tok")
	require.NoError(t, err)
	assert.Equal(t, "12345", challenge)

	_, err = VerifySubscription("subscribe", "wrong", "12345", "tok")
	var forbidden pkgError.ForbiddenError
	assert.True(t, errors.As(err, &forbidden))

	_, err = VerifySubscription("unsubscribe", "tok", "12345", "tok")
	assert.True(t, errors.As(err, &forbidden))

	_, err = VerifySubscription("subscribe", "", "12345", "")
	var invalid pkgError.ValidationError
	assert.True(t, errors.As(err, &invalid))

	_, err = VerifySubscription("", "tok", "12345", "tok")
	assert.True(t, errors.As(err, &invalid))
}

func TestAllowList(t *testing.T) {
	open := NewAllowList(nil)
	assert.True(t, open.Allowed("6281"))

	list := NewAllowList([]string{"+62 857-3078-4528", " "})
	assert.Equal(t, 1, list.Len())
	assert.True(t, list.Allowed("6285730784528"))
	assert.True(t, list.Allowed("+62-857-3078-4528"))
	assert.False(t, list.Allowed("6281111111111"))
}
