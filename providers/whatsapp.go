package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const whatsappGraphBaseURL = "https://graph.facebook.com/v18.0"

// WhatsAppSender implements MessageSender using the WhatsApp Cloud API.
// One instance per store; each store brings its own access token and
// phone-number id.
type WhatsAppSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
}

func NewWhatsAppSender(accessToken, phoneNumberID string) (*WhatsAppSender, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("whatsapp access token not set")
	}
	if phoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id not set")
	}
	return &WhatsAppSender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type whatsappTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

// SendText sends a text message to a phone number in E.164 form.
func (w *WhatsAppSender) SendText(ctx context.Context, to, body string, previewURL bool) error {
	msg := whatsappTextMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
	}
	msg.Text.PreviewURL = previewURL
	msg.Text.Body = body

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	apiURL := fmt.Sprintf("%s/%s/messages", whatsappGraphBaseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp error %s: %s", resp.Status, string(respBody))
	}
	return nil
}
