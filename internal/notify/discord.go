package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Embed colours by event.
const (
	colorFailure = 0xE74C3C
	colorOK      = 0x2ECC71
)

// DiscordSender posts alerts to a Discord webhook as a single embed.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for webhookURL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{webhookURL: webhookURL, client: newHTTPClient()}
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Send posts alert to the webhook.
func (d *DiscordSender) Send(ctx context.Context, alert Alert) error {
	embed := discordEmbed{Title: alert.Title, Description: alert.Message, Color: colorOK}
	if alert.Event == EventSyncFailed {
		embed.Color = colorFailure
	}
	for _, f := range alert.Fields {
		embed.Fields = append(embed.Fields, discordField{Name: f[0], Value: f[1], Inline: true})
	}

	payload := map[string]any{"embeds": []discordEmbed{embed}}
	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
