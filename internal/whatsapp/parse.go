package whatsapp

import "encoding/json"

// Incoming is a normalized inbound message: the sender, what they wrote and
// the delivery's message ID (used for dedup).
type Incoming struct {
	MessageID   string
	From        string
	ProfileName string
	Text        string
}

// ParseWebhook extracts the first processable message from a webhook
// delivery. It returns (nil, false) for status-only deliveries, non-text
// message types, missing fields at any nesting level and malformed JSON;
// none of those are errors, there is simply nothing to reply to.
func ParseWebhook(body []byte) (*Incoming, bool) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			value := change.Value
			if len(value.Messages) == 0 {
				continue
			}

			msg := value.Messages[0]
			text, ok := messageText(msg)
			if !ok || msg.From == "" {
				continue
			}

			in := &Incoming{
				MessageID: msg.ID,
				From:      msg.From,
				Text:      text,
			}
			if len(value.Contacts) > 0 {
				in.ProfileName = value.Contacts[0].Profile.Name
			}
			return in, true
		}
	}
	return nil, false
}

// messageText maps a message body to reply-able text. Interactive button and
// list replies count as text (their selected title); media, locations,
// reactions and everything else do not.
func messageText(msg IncomingMessage) (string, bool) {
	switch msg.Type {
	case "text":
		if msg.Text == nil || msg.Text.Body == "" {
			return "", false
		}
		return msg.Text.Body, true
	case "interactive":
		if msg.Interactive == nil {
			return "", false
		}
		if r := msg.Interactive.ButtonReply; r != nil && r.Title != "" {
			return r.Title, true
		}
		if r := msg.Interactive.ListReply; r != nil && r.Title != "" {
			return r.Title, true
		}
		return "", false
	case "button":
		if msg.Button == nil || msg.Button.Text == "" {
			return "", false
		}
		return msg.Button.Text, true
	default:
		return "", false
	}
}
