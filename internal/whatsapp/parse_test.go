package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textDelivery = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "123",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"display_phone_number": "15550001111", "phone_number_id": "1111"},
				"contacts": [{"profile": {"name": "Ada"}, "wa_id": "15551234567"}],
				"messages": [{
					"from": "15551234567",
					"id": "wamid.abc",
					"timestamp": "1700000000",
					"type": "text",
					"text": {"body": "2+2"}
				}]
			}
		}]
	}]
}`

func TestParseTextMessage(t *testing.T) {
	in, ok := ParseWebhook([]byte(textDelivery))
	require.True(t, ok)
	assert.Equal(t, "15551234567", in.From)
	assert.Equal(t, "2+2", in.Text)
	assert.Equal(t, "wamid.abc", in.MessageID)
	assert.Equal(t, "Ada", in.ProfileName)
}

func TestParseInteractiveReplies(t *testing.T) {
	buttonReply := `{"entry":[{"changes":[{"field":"messages","value":{"messages":[
		{"from":"1","id":"m1","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"b1","title":"Show menu"}}}
	]}}]}]}`
	in, ok := ParseWebhook([]byte(buttonReply))
	require.True(t, ok)
	assert.Equal(t, "Show menu", in.Text)

	listReply := `{"entry":[{"changes":[{"field":"messages","value":{"messages":[
		{"from":"1","id":"m2","type":"interactive","interactive":{"type":"list_reply","list_reply":{"id":"r1","title":"Pricing"}}}
	]}}]}]}`
	in, ok = ParseWebhook([]byte(listReply))
	require.True(t, ok)
	assert.Equal(t, "Pricing", in.Text)
}

func TestParseNoOpCases(t *testing.T) {
	cases := map[string]string{
		"empty object":     `{}`,
		"empty entry":      `{"entry": []}`,
		"no changes":       `{"entry": [{"id": "1"}]}`,
		"no value":         `{"entry": [{"changes": [{}]}]}`,
		"no messages":      `{"entry": [{"changes": [{"value": {"metadata": {}}}]}]}`,
		"empty messages":   `{"entry": [{"changes": [{"value": {"messages": []}}]}]}`,
		"wrong field":      `{"entry": [{"changes": [{"field": "account_update", "value": {"messages": [{"from": "1", "type": "text", "text": {"body": "x"}}]}}]}]}`,
		"status update":    `{"entry": [{"changes": [{"field": "messages", "value": {"statuses": [{"id": "wamid.x", "status": "delivered"}]}}]}]}`,
		"image message":    `{"entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "id": "m", "type": "image"}]}}]}]}`,
		"location message": `{"entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "id": "m", "type": "location"}]}}]}]}`,
		"reaction message": `{"entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "id": "m", "type": "reaction"}]}}]}]}`,
		"text without body": `{"entry": [{"changes": [{"field": "messages", "value": {"messages": [{"from": "1", "id": "m", "type": "text"}]}}]}]}`,
		"missing sender":   `{"entry": [{"changes": [{"field": "messages", "value": {"messages": [{"id": "m", "type": "text", "text": {"body": "x"}}]}}]}]}`,
		"malformed json":   `{"entry": [`,
		"not json":         `hello`,
	}
	for name, payload := range cases {
		in, ok := ParseWebhook([]byte(payload))
		assert.False(t, ok, "case %q should be a no-op", name)
		assert.Nil(t, in, "case %q should yield no message", name)
	}
}
