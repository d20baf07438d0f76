package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sentryfw/system"
)

// WebhookService handles Discord webhook notifications
type WebhookService struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordEmbed represents a Discord embed object
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []DiscordEmbedField `json:"fields,omitempty"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordWebhookPayload represents a Discord webhook message
type DiscordWebhookPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content,omitempty"`
	Embeds   []DiscordEmbed `json:"embeds,omitempty"`
}

func NewWebhookService() *WebhookService {
	return &WebhookService{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SetWebhookURL sets the Discord webhook URL
func (w *WebhookService) SetWebhookURL(url string) {
	w.webhookURL = url
	w.enabled = url != ""
}

// IsEnabled returns whether the webhook is enabled
func (w *WebhookService) IsEnabled() bool {
	return w.enabled && w.webhookURL != ""
}

// Discord color constants
const (
	ColorRed    = 0xFF0000 // Attack/Error
	ColorOrange = 0xFFAA00 // Warning/Block
	ColorGreen  = 0x00FF00 // Success
	ColorBlue   = 0x00AAFF // Info
)

// SendBlockAlert sends an IP block notification to Discord
func (w *WebhookService) SendBlockAlert(sourceIP, country, reason string) error {
	if !w.IsEnabled() {
		return nil
	}

	embed := DiscordEmbed{
		Title:       "🚨 Attack Blocked",
		Description: fmt.Sprintf("Hostile traffic detected from **%s**", sourceIP),
		Color:       ColorRed,
		Fields: []DiscordEmbedField{
			{Name: "Source IP", Value: fmt.Sprintf("`%s`", sourceIP), Inline: true},
			{Name: "Country", Value: country, Inline: true},
			{Name: "Reason", Value: reason, Inline: false},
		},
		Footer:    &DiscordEmbedFooter{Text: "SentryFW"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	return w.sendEmbed(embed)
}

// SendUnblockAlert sends an IP unblock notification to Discord
func (w *WebhookService) SendUnblockAlert(sourceIP string) error {
	if !w.IsEnabled() {
		return nil
	}

	embed := DiscordEmbed{
		Title:       "✅ IP Unblocked",
		Description: fmt.Sprintf("Block for **%s** has been lifted", sourceIP),
		Color:       ColorGreen,
		Footer:      &DiscordEmbedFooter{Text: "SentryFW"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	return w.sendEmbed(embed)
}

// SendSystemAlert sends a generic system notification
func (w *WebhookService) SendSystemAlert(title, message string, color int) error {
	if !w.IsEnabled() {
		return nil
	}

	embed := DiscordEmbed{
		Title:       title,
		Description: message,
		Color:       color,
		Footer:      &DiscordEmbedFooter{Text: "SentryFW"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	return w.sendEmbed(embed)
}

// SendTestAlert sends a test notification to verify webhook connectivity
func (w *WebhookService) SendTestAlert() error {
	if !w.IsEnabled() {
		return fmt.Errorf("webhook not configured")
	}
	return w.SendSystemAlert("✅ Webhook Test", "SentryFW webhook is configured correctly!", ColorGreen)
}

func (w *WebhookService) sendEmbed(embed DiscordEmbed) error {
	payload := DiscordWebhookPayload{
		Username: "SentryFW",
		Embeds:   []DiscordEmbed{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequest("POST", w.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	system.Debug("Discord webhook sent successfully")
	return nil
}
