package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://graph.facebook.com"

// Client sends messages through the WhatsApp Cloud API. Each send is a
// single attempt; transport and API failures are returned to the caller,
// never retried here.
type Client struct {
	PhoneNumberID string
	AccessToken   string
	APIVersion    string
	BaseURL       string // overridden in tests
	HTTPClient    *http.Client
}

func NewClient(phoneNumberID, accessToken, apiVersion string, timeout time.Duration) *Client {
	if apiVersion == "" {
		apiVersion = "v24.0"
	}
	return &Client{
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
		APIVersion:    apiVersion,
		BaseURL:       defaultBaseURL,
		HTTPClient:    &http.Client{Timeout: timeout},
	}
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.Send(ctx, &OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &Text{Body: body},
	})
}

// SendButtons sends an interactive reply-button message (max 3 buttons).
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []ButtonReply) error {
	btns := make([]Button, len(buttons))
	for i, b := range buttons {
		btns[i] = Button{Type: "reply", Reply: b}
	}
	return c.Send(ctx, &OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "button",
			Body:   InteractiveBody{Text: body},
			Action: &InteractiveAction{Buttons: btns},
		},
	})
}

// SendList sends an interactive list message.
func (c *Client) SendList(ctx context.Context, to, body, buttonLabel string, sections []Section) error {
	return c.Send(ctx, &OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &Interactive{
			Type:   "list",
			Body:   InteractiveBody{Text: body},
			Action: &InteractiveAction{Button: buttonLabel, Sections: sections},
		},
	})
}

// SendImage sends an image by link with an optional caption.
func (c *Client) SendImage(ctx context.Context, to, link, caption string) error {
	return c.Send(ctx, &OutboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "image",
		Image:            &Media{Link: link, Caption: caption},
	})
}

// Send posts an outbound message to the Cloud API /messages endpoint.
func (c *Client) Send(ctx context.Context, msg *OutboundMessage) error {
	if msg.To == "" {
		return fmt.Errorf("empty recipient")
	}
	url := fmt.Sprintf("%s/%s/%s/messages", c.BaseURL, c.APIVersion, c.PhoneNumberID)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Code != 0 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       er.Error.Code,
			Subcode:    er.Error.ErrorSubcode,
			Message:    er.Error.Message,
			FbtraceID:  er.Error.FbtraceID,
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

// APIError is a non-2xx response from the Cloud API.
type APIError struct {
	StatusCode int
	Code       int
	Subcode    int
	Message    string
	FbtraceID  string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp API error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("whatsapp API error (status %d): %s", e.StatusCode, e.Message)
}
